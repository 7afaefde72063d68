package domain

import "errors"

var (
	ErrSlotNotFound  = errors.New("slot not found")
	ErrSlotFull      = errors.New("slot is full")
	ErrSlotNotOpen   = errors.New("slot is not open for booking")
	ErrAlreadyBooked = errors.New("user already booked the slot")
	ErrNotBooked     = errors.New("user has no booking for the slot")
	ErrCallNotFound  = errors.New("call not found")
	ErrUnauthorized  = errors.New("unauthorized")
)
