// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tickguard/internal/protocol"
)

func TestDecodeEnvelope(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"open", `{"kind":"open","connection_id":"` + id + `","username":"steve","handle":3,"version":47}`, false},
		{"close", `{"kind":"close","connection_id":"` + id + `"}`, false},
		{"inbound packet", `{"kind":"packet","connection_id":"` + id + `","direction":"inbound","packet":{"type":"flying"}}`, false},
		{"outbound packet", `{"kind":"packet","connection_id":"` + id + `","direction":"outbound","packet":{"type":"server_ping","payload":{"id":1}}}`, false},
		{"unknown packet type passes", `{"kind":"packet","connection_id":"` + id + `","direction":"inbound","packet":{"type":"mystery"}}`, false},
		{"not json", `{`, true},
		{"missing id", `{"kind":"open"}`, true},
		{"unknown kind", `{"kind":"ping","connection_id":"` + id + `"}`, true},
		{"bad direction", `{"kind":"packet","connection_id":"` + id + `","direction":"sideways","packet":{"type":"flying"}}`, true},
		{"missing packet", `{"kind":"packet","connection_id":"` + id + `","direction":"inbound"}`, true},
		{"direction mismatch", `{"kind":"packet","connection_id":"` + id + `","direction":"outbound","packet":{"type":"flying"}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeEnvelope() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEnvelope) {
				t.Errorf("error %v does not wrap ErrInvalidEnvelope", err)
			}
		})
	}
}

func TestEnvelope_Info(t *testing.T) {
	env := Envelope{Kind: KindOpen, ConnectionID: uuid.New(), Username: "alex", Handle: 9, Version: protocol.V1_8}
	joined := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	info := env.Info(joined)
	if info.ID != env.ConnectionID || info.Username != "alex" || info.Handle != 9 || info.Version != protocol.V1_8 {
		t.Errorf("Info() = %+v, want fields copied from %+v", info, env)
	}
	if !info.JoinedAt.Equal(joined) {
		t.Errorf("JoinedAt = %v, want %v", info.JoinedAt, joined)
	}
}

func TestEnvelope_EncodeDecode(t *testing.T) {
	pk, err := protocol.New(protocol.UpdateSign, protocol.SignUpdate{Lines: []string{"hi"}})
	if err != nil {
		t.Fatalf("protocol.New() error = %v", err)
	}
	env := Envelope{Kind: KindPacket, ConnectionID: uuid.New(), Direction: protocol.Inbound, Packet: &pk}
	data, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	sign, err := protocol.Decode[protocol.SignUpdate](got.Packet)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(sign.Lines) != 1 || sign.Lines[0] != "hi" {
		t.Errorf("Lines = %v, want [hi]", sign.Lines)
	}
}
