// Package memory keeps every record in process memory behind a mutex. It
// mirrors the conditional-write behaviour of the dynamo package and backs
// the memory store driver and the service tests.
package memory

import (
	"maps"
	"slices"

	"vibin_matchcore/models"
)

func cloneInteraction(in models.Interaction) *models.Interaction {
	if in.Comment != nil {
		c := *in.Comment
		in.Comment = &c
	}
	return &in
}

func cloneMatch(m models.Match) *models.Match {
	return &m
}

func cloneChat(c models.Chat) *models.Chat {
	c.Settings = maps.Clone(c.Settings)
	if c.Settings == nil {
		c.Settings = map[string]models.ParticipantSettings{}
	}
	return &c
}

func cloneMessage(m models.Message) *models.Message {
	m.ReadReceipts = maps.Clone(m.ReadReceipts)
	m.Reactions = maps.Clone(m.Reactions)
	m.DeletionRecords = maps.Clone(m.DeletionRecords)
	m.EditHistory = slices.Clone(m.EditHistory)
	m.ViewedBy = slices.Clone(m.ViewedBy)
	m.HiddenFor = slices.Clone(m.HiddenFor)
	if m.Media != nil {
		media := *m.Media
		m.Media = &media
	}
	if m.Location != nil {
		loc := *m.Location
		m.Location = &loc
	}
	if m.ForwardedFrom != nil {
		ref := *m.ForwardedFrom
		m.ForwardedFrom = &ref
	}
	return &m
}
