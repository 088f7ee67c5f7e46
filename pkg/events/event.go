// Package events carries gateway notifications to the host.
//
// A successful read produces exactly one DataRetrieved event. The event is
// the canonical way payload bytes reach the caller; hosts subscribe by
// plugging a Notifier into the gateway.
package events

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Lawliet-Chan/offchain-storage/pkg/access"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// Kind names the event type.
type Kind string

const (
	// DataRetrieved is emitted after a permitted read fetched the payload.
	DataRetrieved Kind = "data_retrieved"
)

// Event is a single notification.
//
// In JSON the identifier is lowercase hex, since identifiers are arbitrary
// bytes; Data is base64 as usual for []byte.
type Event struct {
	// ID is unique per event
	ID uuid.UUID `json:"id"`

	Kind       Kind                `json:"kind"`
	Identifier metadata.Identifier `json:"-"`
	Caller     access.Identity     `json:"caller"`

	// Data is the retrieved payload. The event owns this slice.
	Data []byte `json:"data"`

	Time time.Time `json:"time"`
}

// NewDataRetrieved builds a DataRetrieved event holding a private copy of data.
func NewDataRetrieved(id metadata.Identifier, caller access.Identity, data []byte) Event {
	buf := make([]byte, len(data))
	copy(buf, data)

	return Event{
		ID:         uuid.New(),
		Kind:       DataRetrieved,
		Identifier: id,
		Caller:     caller,
		Data:       buf,
		Time:       time.Now().UTC(),
	}
}

type eventJSON struct {
	eventFields
	Identifier string `json:"identifier"`
}

// eventFields drops Event's methods so the embedded struct does not recurse
// into MarshalJSON.
type eventFields Event

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{eventFields: eventFields(e), Identifier: e.Identifier.Hex()})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var v eventJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	raw, err := hex.DecodeString(v.Identifier)
	if err != nil {
		return fmt.Errorf("event identifier: %w", err)
	}
	*e = Event(v.eventFields)
	e.Identifier = metadata.IdentifierFromBytes(raw)
	return nil
}
