package adminws

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTripAllFields(t *testing.T) {
	seq := uint32(42)
	name := "insert"
	body := []byte(`{"id":"x"}`)

	var buf bytes.Buffer
	env := Envelope{Type: TypeRequest, Seq: &seq, Name: &name, Body: body}
	require.NoError(t, env.Encode(&buf))

	got, err := DecodeEnvelope(&buf)
	require.NoError(t, err)
	require.Equal(t, TypeRequest, got.Type)
	require.NotNil(t, got.Seq)
	require.Equal(t, seq, *got.Seq)
	require.NotNil(t, got.Name)
	require.Equal(t, name, *got.Name)
	require.Equal(t, body, got.Body)
}

func TestEnvelopeRoundTripNoOptionalFields(t *testing.T) {
	var buf bytes.Buffer
	env := Envelope{Type: TypeEvent}
	require.NoError(t, env.Encode(&buf))

	got, err := DecodeEnvelope(&buf)
	require.NoError(t, err)
	require.Equal(t, TypeEvent, got.Type)
	require.Nil(t, got.Seq)
	require.Nil(t, got.Name)
	require.Nil(t, got.Body)
}

func TestEnvelopeRoundTripEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	env := Envelope{Type: TypeResponse, Body: []byte{}}
	require.NoError(t, env.Encode(&buf))

	got, err := DecodeEnvelope(&buf)
	require.NoError(t, err)
	require.NotNil(t, got.Body)
	require.Empty(t, got.Body)
}
