package rating

// League is the display tier of a player.
type League string

const (
	Provisional League = "provisional"
	Bronze      League = "bronze"
	Silver      League = "silver"
	Gold        League = "gold"
	Diamond     League = "diamond"
	Master      League = "master"
	Challenger  League = "challenger"
)

// Ladder geometry.
const (
	LPPerLeague   = 400
	LPPerDivision = 100
	Divisions     = LPPerLeague / LPPerDivision
)

var divided = []League{Bronze, Silver, Gold, Diamond}

// Presentation is the derived display of a rating. Division is 1 (top) to 4
// for divided leagues and 0 otherwise. Provisional players show progress
// toward placement and no points.
type Presentation struct {
	League   League `json:"league"`
	Division int    `json:"division,omitempty"`
	Points   int    `json:"points"`
	Progress int    `json:"progress"`
	LP       int    `json:"lp"`
}

// Place maps an LP value onto a placed league.
func Place(lp int) Presentation {
	if lp < 0 {
		return Presentation{League: Bronze, Division: Divisions, Progress: 100, LP: lp}
	}
	tier := lp / LPPerLeague
	if tier >= len(divided) {
		return Presentation{
			League:   Master,
			Points:   lp - len(divided)*LPPerLeague,
			Progress: 100,
			LP:       lp,
		}
	}
	rem := lp % LPPerLeague
	return Presentation{
		League:   divided[tier],
		Division: Divisions - rem/LPPerDivision,
		Points:   rem % LPPerDivision,
		Progress: 100,
		LP:       lp,
	}
}

// Promote shows the single top Master player as Challenger. Whether p is
// that player is decided by whoever ranks the ladder.
func Promote(p Presentation, leader bool) Presentation {
	if leader && p.League == Master {
		p.League = Challenger
	}
	return p
}

func provisional(pct int) Presentation {
	return Presentation{League: Provisional, Progress: clamp(pct, 0, 99)}
}

// progress is the percentage of placement matches played, 100 when done.
func progress(played, needed int) int {
	if needed <= 0 || played >= needed {
		return 100
	}
	return clamp(played*100/needed, 0, 99)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
