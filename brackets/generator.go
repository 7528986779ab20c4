package brackets

// Participant is a club entering a stage. It is either Seeded (ordered by
// seed, from standings) or Unseeded (ordered by bracket slot).
type Participant interface {
	Club() int
	isParticipant()
}

type Seeded struct {
	Seed   int
	ClubID int
}

func (p Seeded) Club() int { return p.ClubID }
func (Seeded) isParticipant() {}

type Unseeded struct {
	Slot   int
	ClubID int
	// Seed is the seed carried from an earlier stage, if any.
	Seed *int
}

func (p Unseeded) Club() int { return p.ClubID }
func (Unseeded) isParticipant() {}

// Less orders participants for pairing: seeded before unseeded, seeds
// ascending, slots ascending, club id as the final tie-break.
func Less(a, b Participant) bool {
	switch x := a.(type) {
	case Seeded:
		y, ok := b.(Seeded)
		if !ok {
			return true
		}
		if x.Seed != y.Seed {
			return x.Seed < y.Seed
		}
	case Unseeded:
		y, ok := b.(Unseeded)
		if !ok {
			return false
		}
		if x.Slot != y.Slot {
			return x.Slot < y.Slot
		}
	}
	return a.Club() < b.Club()
}

// SeedOf returns the seed a participant brings into a new series.
func SeedOf(p Participant) *int {
	switch v := p.(type) {
	case Seeded:
		seed := v.Seed
		return &seed
	case Unseeded:
		return v.Seed
	}
	return nil
}

// Pairing is one series of a new stage. Away is nil for a bye.
type Pairing struct {
	Home Participant
	Away Participant
	Slot int
}

func (p Pairing) IsBye() bool {
	return p.Away == nil
}

// Fixture is a match to create for a pairing.
type Fixture struct {
	HomeClubID int
	AwayClubID int
	Order      int
}
