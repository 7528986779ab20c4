package brackets

import (
	"errors"
	"sort"
)

var ErrNotEnoughParticipants = errors.New("at least two participants are required to build a stage")

// Pair orders the participants and pairs them 1-2, 3-4 and so on. An odd
// participant out receives a bye. The bracket slot of a pairing is
// ceil(min(slotA, slotB)/2) for slotted participants and the pairing
// number otherwise.
func Pair(participants []Participant) ([]Pairing, error) {
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}
	ordered := make([]Participant, len(participants))
	copy(ordered, participants)
	sort.SliceStable(ordered, func(i, j int) bool { return Less(ordered[i], ordered[j]) })

	pairings := make([]Pairing, 0, (len(ordered)+1)/2)
	for i := 0; i < len(ordered); i += 2 {
		number := i/2 + 1
		if i+1 == len(ordered) {
			pairings = append(pairings, Pairing{Home: ordered[i], Slot: nextSlot(number, ordered[i])})
			continue
		}
		pairings = append(pairings, Pairing{
			Home: ordered[i],
			Away: ordered[i+1],
			Slot: nextSlot(number, ordered[i], ordered[i+1]),
		})
	}
	return pairings, nil
}

func nextSlot(number int, ps ...Participant) int {
	lowest := 0
	for _, p := range ps {
		u, ok := p.(Unseeded)
		if !ok || u.Slot <= 0 {
			return number
		}
		if lowest == 0 || u.Slot < lowest {
			lowest = u.Slot
		}
	}
	return (lowest + 1) / 2
}

// Fixtures lays out the planned matches of a pairing, alternating home and
// away starting with the higher-placed participant at home.
func Fixtures(p Pairing, planned int) []Fixture {
	if p.IsBye() {
		return nil
	}
	if planned < 1 {
		planned = 1
	}
	fixtures := make([]Fixture, 0, planned)
	for i := 0; i < planned; i++ {
		f := Fixture{HomeClubID: p.Home.Club(), AwayClubID: p.Away.Club(), Order: i + 1}
		if i%2 == 1 {
			f.HomeClubID, f.AwayClubID = f.AwayClubID, f.HomeClubID
		}
		fixtures = append(fixtures, f)
	}
	return fixtures
}
