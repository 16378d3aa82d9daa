package models

// Clone returns a deep copy so callers never share slices or pointers with a stored document.
func (l *League) Clone() *League {
	if l == nil {
		return nil
	}
	c := *l
	if l.Participants != nil {
		c.Participants = make([]Participant, len(l.Participants))
		for i, p := range l.Participants {
			c.Participants[i] = p
			if p.TeamPlayerIDs != nil {
				c.Participants[i].TeamPlayerIDs = append([]string(nil), p.TeamPlayerIDs...)
			}
		}
	}
	if l.Standings != nil {
		c.Standings = append([]Standing(nil), l.Standings...)
	}
	c.Playoff = l.Playoff.Clone()
	return &c
}

func (p *Playoff) Clone() *Playoff {
	if p == nil {
		return nil
	}
	c := *p
	c.QualifiedPlayers = append([]QualifiedPlayer(nil), p.QualifiedPlayers...)
	c.Winner = cloneQualified(p.Winner)
	c.RunnerUp = cloneQualified(p.RunnerUp)
	c.ThirdPlace = cloneQualified(p.ThirdPlace)
	c.FourthPlace = cloneQualified(p.FourthPlace)
	return &c
}

func cloneQualified(q *QualifiedPlayer) *QualifiedPlayer {
	if q == nil {
		return nil
	}
	c := *q
	return &c
}

func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	if m.Score != nil {
		s := *m.Score
		s.Sets = append([]SetScore(nil), m.Score.Sets...)
		c.Score = &s
	}
	c.WinnerID = cloneString(m.WinnerID)
	c.SubmittedBy = cloneString(m.SubmittedBy)
	if m.ProposedDate != nil {
		t := *m.ProposedDate
		c.ProposedDate = &t
	}
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
