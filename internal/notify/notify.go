// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package notify

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anchorsync/anchorsync/internal/record"
)

var (
	// ErrMalformedNotification reports an undecodable notification payload.
	ErrMalformedNotification = errors.New("malformed notification")
)

// Payload is the wire shape shared by every push channel: the set of record
// types the external store reports as changed. The payload carries no record
// data; a notified source always pulls to learn what actually changed.
type Payload struct {
	Types []record.Type `json:"types"`
}

// DecodePayload parses a notification body. A syntactically valid payload
// with no types is malformed too, since it can never match a subscription.
func DecodePayload(body []byte) (Payload, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrMalformedNotification, err)
	}
	if len(payload.Types) == 0 {
		return Payload{}, fmt.Errorf("%w: no record types", ErrMalformedNotification)
	}

	return payload, nil
}

// EncodePayload renders a notification body, used by channels that also
// publish control or loopback messages.
func EncodePayload(types []record.Type) ([]byte, error) {
	return json.Marshal(Payload{Types: types})
}
