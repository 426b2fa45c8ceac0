package rating

import "time"

type elo struct {
	cfg Config
}

func (e *elo) Algorithm() Algorithm { return Elo }

func (e *elo) NewRecord(time.Time) Record {
	return Record{Score: e.cfg.BaseScore, KFactor: e.cfg.InitialK}
}

func (e *elo) Update(a, b Record, scoreA float64, now time.Time) (Record, Record) {
	ea := expected(a.Score, b.Score)
	eb := 1 - ea
	return e.apply(a, scoreA-ea, now), e.apply(b, (1-scoreA)-eb, now)
}

func (e *elo) apply(r Record, surprise float64, now time.Time) Record {
	k := r.KFactor
	if k <= 0 {
		k = e.cfg.InitialK
	}
	r.Score += k * surprise
	r.KFactor = e.cfg.FinalK*e.cfg.KDeflation + k*(1-e.cfg.KDeflation)
	r.Matches++
	r.LastMatchAt = now
	return r
}

func (e *elo) LP(r Record) int { return lp(e.cfg, r.Score) }

func (e *elo) Present(r Record) Presentation {
	if r.Matches < e.cfg.PlacementMatches {
		return provisional(progress(r.Matches, e.cfg.PlacementMatches))
	}
	return Place(e.LP(r))
}
