package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateReservation OutboxAggregateType = "reservation"
	AggregateResource    OutboxAggregateType = "resource"
	AggregateStockLevel  OutboxAggregateType = "stock_level"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateReservation,
	AggregateResource,
	AggregateStockLevel,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventReservationHeld      OutboxEventType = "reservation_held"
	EventReservationConfirmed OutboxEventType = "reservation_confirmed"
	EventReservationCancelled OutboxEventType = "reservation_cancelled"
	EventReservationReleased  OutboxEventType = "reservation_released"
	EventReservationExpired   OutboxEventType = "reservation_expired"
	EventResourceRetired      OutboxEventType = "resource_retired"
	EventStockAdjusted        OutboxEventType = "stock_adjusted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventReservationHeld,
	EventReservationConfirmed,
	EventReservationCancelled,
	EventReservationReleased,
	EventReservationExpired,
	EventResourceRetired,
	EventStockAdjusted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// EventTypeForStatus maps a reservation status to its transition event.
func EventTypeForStatus(status ReservationStatus) (OutboxEventType, error) {
	switch status {
	case ReservationStatusPending:
		return EventReservationHeld, nil
	case ReservationStatusConfirmed:
		return EventReservationConfirmed, nil
	case ReservationStatusCancelled:
		return EventReservationCancelled, nil
	case ReservationStatusReleased:
		return EventReservationReleased, nil
	case ReservationStatusExpired:
		return EventReservationExpired, nil
	}
	return "", fmt.Errorf("no event type for reservation status %q", status)
}
