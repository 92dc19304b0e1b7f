// internal/models/affiliate.go
package models

import (
	"fmt"
	"strings"
)

// Channel is a payment rail an affiliate can receive on or send through.
type Channel string

const (
	ChannelA    Channel = "channel_a"
	ChannelB    Channel = "channel_b"
	ChannelBoth Channel = "both"
)

// ParseChannel normalizes a stored channel tag.
func ParseChannel(raw string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "channel_a", "a":
		return ChannelA, nil
	case "channel_b", "b":
		return ChannelB, nil
	case "both", "ambos":
		return ChannelBoth, nil
	}
	return "", fmt.Errorf("unknown channel tag %q", raw)
}

// Range is an amount window an affiliate may transact within.
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r Range) Span() float64 {
	return r.End - r.Start
}

// Empty reports whether the range admits no amount.
func (r Range) Empty() bool {
	return r.End <= r.Start
}

func (r Range) Contains(amount float64) bool {
	return amount >= r.Start && amount <= r.End
}

func (r Range) Midpoint() float64 {
	return r.Start + (r.End-r.Start)/2
}

// AffiliateRange is one row of the affiliate/range join.
type AffiliateRange struct {
	AffiliateID     string    `json:"affiliateId"`
	DisplayName     string    `json:"displayName"`
	RangeStart      float64   `json:"rangeStart"`
	RangeEnd        float64   `json:"rangeEnd"`
	ReceiveChannels []Channel `json:"receiveChannels"`
	SendChannels    []Channel `json:"sendChannels"`
}

// Affiliate is the consolidated view of every range row an affiliate owns.
type Affiliate struct {
	ID              string
	DisplayName     string
	Ranges          []Range
	ReceiveChannels map[Channel]struct{}
	SendChannels    map[Channel]struct{}
}

func (a *Affiliate) ReceivesOn(ch Channel) bool {
	_, ok := a.ReceiveChannels[ch]
	return ok
}
