package rating

import (
	"math"
	"time"
)

// q is the Glicko scale constant ln(10)/400.
var q = math.Ln10 / 400

type glicko struct {
	cfg Config
}

func (g *glicko) Algorithm() Algorithm { return Glicko2 }

func (g *glicko) NewRecord(now time.Time) Record {
	return Record{Score: g.cfg.BaseScore, Deviation: g.cfg.InitialDeviation}
}

// Inflate grows the deviation for the time r has been idle, up to the ceiling.
func (g *glicko) Inflate(r Record, now time.Time) Record {
	rd := r.Deviation
	if rd <= 0 {
		rd = g.cfg.InitialDeviation
	}
	if !r.LastMatchAt.IsZero() && now.After(r.LastMatchAt) {
		hours := now.Sub(r.LastMatchAt).Hours()
		c := g.cfg.InflationPerHour
		rd = math.Sqrt(rd*rd + c*c*hours)
	}
	r.Deviation = math.Min(rd, g.cfg.MaxDeviation)
	return r
}

func (g *glicko) Update(a, b Record, scoreA float64, now time.Time) (Record, Record) {
	a = g.Inflate(a, now)
	b = g.Inflate(b, now)
	return g.apply(a, b, scoreA, now), g.apply(b, a, 1-scoreA, now)
}

// apply rates r after one game against opp, both already inflated.
func (g *glicko) apply(r, opp Record, s float64, now time.Time) Record {
	gOpp := gFactor(opp.Deviation)
	e := 1 / (1 + math.Pow(10, -gOpp*(r.Score-opp.Score)/400))
	d2 := 1 / (q * q * gOpp * gOpp * e * (1 - e))

	precision := 1/(r.Deviation*r.Deviation) + 1/d2
	r.Score += q / precision * gOpp * (s - e)
	r.Deviation = math.Max(math.Sqrt(1/precision), g.cfg.MinDeviation)
	r.Matches++
	r.LastMatchAt = now
	return r
}

// gFactor damps the impact of an opponent whose rating is uncertain.
func gFactor(rd float64) float64 {
	return 1 / math.Sqrt(1+3*q*q*rd*rd/(math.Pi*math.Pi))
}

func (g *glicko) LP(r Record) int { return lp(g.cfg, r.Score) }

func (g *glicko) Present(r Record) Presentation {
	byMatches := progress(r.Matches, g.cfg.PlacementMatches)
	byDeviation := 100
	if r.Deviation > g.cfg.DeviationThreshold {
		span := g.cfg.InitialDeviation - g.cfg.DeviationThreshold
		byDeviation = 0
		if span > 0 {
			byDeviation = clamp(int(100*(g.cfg.InitialDeviation-r.Deviation)/span), 0, 99)
		}
	}
	if byMatches < 100 || byDeviation < 100 {
		return provisional(min(byMatches, byDeviation))
	}
	return Place(g.LP(r))
}
