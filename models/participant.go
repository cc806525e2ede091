package models

// AISentinel is the reserved seat value marking the bot as a room
// participant. No player account may carry this name.
const AISentinel = "AI"

type ParticipantKind int

const (
	ParticipantHuman ParticipantKind = iota
	ParticipantAI
)

// Participant is a decoded room seat: either a named player or the bot.
type Participant struct {
	Kind     ParticipantKind
	Username string
}

func HumanParticipant(username string) Participant {
	return Participant{Kind: ParticipantHuman, Username: username}
}

func AIParticipant() Participant {
	return Participant{Kind: ParticipantAI}
}

// ParseParticipant decodes a stored seat value.
func ParseParticipant(stored string) Participant {
	if stored == AISentinel {
		return AIParticipant()
	}
	return HumanParticipant(stored)
}

func (p Participant) IsAI() bool { return p.Kind == ParticipantAI }

// Stored returns the seat value as persisted on the room row.
func (p Participant) Stored() string {
	if p.IsAI() {
		return AISentinel
	}
	return p.Username
}
