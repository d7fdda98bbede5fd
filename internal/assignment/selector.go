// Package assignment picks the technician an incoming or escalated ticket is
// routed to.
package assignment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Source records which step of the algorithm produced a selection.
type Source string

const (
	SourceRule               Source = "rule"
	SourceSpecialty          Source = "specialty"
	SourceInitialResponsible Source = "initial_responsible"
	SourceNone               Source = "none"
)

// Snapshot is the read model the selector ranks over. Loads may be slightly stale.
type Snapshot struct {
	Technicians []domain.Technician
	Specialties []domain.Specialty
	Rules       []domain.AssignmentRule
	Loads       map[int64]int
}

// Request describes what to select for.
type Request struct {
	Service  *domain.Service
	Priority domain.TicketPriority
	// ExcludeTechnicianID keeps the current holder out of the candidates.
	ExcludeTechnicianID *int64
}

// Selection is the outcome. When Assigned is false the ticket stays in the
// unassigned pool and Reason explains why.
type Selection struct {
	Assigned       bool
	TechnicianID   int64
	TechnicianName string
	Area           string
	Source         Source
	Reason         string
}

// Directory loads the snapshot for an area.
type Directory interface {
	Snapshot(ctx context.Context, area string) (Snapshot, error)
}

// Selector resolves technicians through a Directory.
type Selector struct {
	directory Directory
	sentinel  string
}

// NewSelector builds a selector. sentinel is the initial-responsible value
// meaning "unassigned pool".
func NewSelector(directory Directory, sentinel string) *Selector {
	if sentinel == "" {
		sentinel = domain.DefaultUnassignedSentinel
	}
	return &Selector{directory: directory, sentinel: sentinel}
}

// Select reads a snapshot and ranks it. It never writes.
func (s *Selector) Select(ctx context.Context, req Request) (Selection, error) {
	if req.Service == nil {
		return Selection{}, fmt.Errorf("select technician: service required")
	}
	area := ClassifyArea(req.Service.Category)
	snap, err := s.directory.Snapshot(ctx, area)
	if err != nil {
		return Selection{}, fmt.Errorf("load technician snapshot: %w", err)
	}
	return Select(snap, req, s.sentinel), nil
}

// Select runs the ranking over an already loaded snapshot.
func Select(snap Snapshot, req Request, sentinel string) Selection {
	area := ClassifyArea(req.Service.Category)
	techs := indexTechnicians(snap.Technicians)
	eligible := func(id int64) (domain.Technician, bool) {
		tech, ok := techs[id]
		if !ok || !tech.Active {
			return domain.Technician{}, false
		}
		if req.ExcludeTechnicianID != nil && *req.ExcludeTechnicianID == id {
			return domain.Technician{}, false
		}
		return tech, true
	}

	if rule := findRule(snap.Rules, req.Service.ID, area, req.Priority); rule != nil {
		for _, candidate := range []*int64{rule.PrincipalID, rule.SecondaryID, rule.SupportID} {
			if candidate == nil {
				continue
			}
			tech, ok := eligible(*candidate)
			if !ok {
				continue
			}
			if rule.MaxLoad > 0 && snap.Loads[tech.ID] >= rule.MaxLoad {
				continue
			}
			return assigned(tech, area, SourceRule)
		}
	}

	if ranked := rankBySpecialty(snap, area, eligible); len(ranked) > 0 {
		return assigned(ranked[0], area, SourceSpecialty)
	}

	if req.Service.InitialResponsibleIsPool(sentinel) {
		return Selection{
			Area:   area,
			Source: SourceNone,
			Reason: fmt.Sprintf("no technician with specialty in %s; service routes to the unassigned pool", area),
		}
	}
	name := strings.TrimSpace(req.Service.InitialResponsible)
	for _, tech := range sortedTechnicians(snap.Technicians) {
		if !strings.EqualFold(strings.TrimSpace(tech.Name), name) {
			continue
		}
		if t, ok := eligible(tech.ID); ok {
			return assigned(t, area, SourceInitialResponsible)
		}
	}
	return Selection{
		Area:   area,
		Source: SourceNone,
		Reason: fmt.Sprintf("no technician with specialty in %s; initial responsible %q is not available", area, name),
	}
}

func assigned(tech domain.Technician, area string, source Source) Selection {
	return Selection{
		Assigned:       true,
		TechnicianID:   tech.ID,
		TechnicianName: tech.Name,
		Area:           area,
		Source:         source,
	}
}

// findRule prefers a rule bound to the service over one bound to the area.
func findRule(rules []domain.AssignmentRule, serviceID int64, area string, priority domain.TicketPriority) *domain.AssignmentRule {
	var byService, byArea *domain.AssignmentRule
	for i := range rules {
		r := &rules[i]
		if !r.Active || r.Priority != priority {
			continue
		}
		switch {
		case r.ServiceID != nil && *r.ServiceID == serviceID:
			if byService == nil || r.ID < byService.ID {
				byService = r
			}
		case r.ServiceID == nil && strings.EqualFold(r.Area, area):
			if byArea == nil || r.ID < byArea.ID {
				byArea = r
			}
		}
	}
	if byService != nil {
		return byService
	}
	return byArea
}

type rankedTechnician struct {
	tech  domain.Technician
	level domain.ExpertiseLevel
	load  int
}

func rankBySpecialty(snap Snapshot, area string, eligible func(int64) (domain.Technician, bool)) []domain.Technician {
	best := make(map[int64]rankedTechnician)
	for _, sp := range snap.Specialties {
		if !sp.Active || !strings.EqualFold(sp.Area, area) {
			continue
		}
		tech, ok := eligible(sp.TechnicianID)
		if !ok {
			continue
		}
		current, seen := best[tech.ID]
		if seen && current.level.Rank() <= sp.Level.Rank() {
			continue
		}
		best[tech.ID] = rankedTechnician{tech: tech, level: sp.Level, load: snap.Loads[tech.ID]}
	}

	ranked := make([]rankedTechnician, 0, len(best))
	for _, r := range best {
		ranked = append(ranked, r)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.level.Rank() != b.level.Rank() {
			return a.level.Rank() < b.level.Rank()
		}
		if a.load != b.load {
			return a.load < b.load
		}
		if an, bn := strings.ToLower(a.tech.Name), strings.ToLower(b.tech.Name); an != bn {
			return an < bn
		}
		return a.tech.ID < b.tech.ID
	})

	out := make([]domain.Technician, len(ranked))
	for i, r := range ranked {
		out[i] = r.tech
	}
	return out
}

func indexTechnicians(list []domain.Technician) map[int64]domain.Technician {
	out := make(map[int64]domain.Technician, len(list))
	for _, t := range list {
		out[t.ID] = t
	}
	return out
}

func sortedTechnicians(list []domain.Technician) []domain.Technician {
	out := append([]domain.Technician(nil), list...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
