package driver

import (
	"fmt"
	"slices"
	"strings"

	"mx/internal/diag"
	"mx/internal/source"
)

// plan orders the decoded units into dependency waves: every unit's
// imports sit in earlier waves. Duplicates, missing imports and cycles are
// reported and their units left out. Units keep input order within a wave.
func plan(units []*UnitResult, r diag.Reporter) [][]*UnitResult {
	byName := make(map[string]*UnitResult, len(units))
	var nodes []*UnitResult
	for _, u := range units {
		if u.Unit == nil {
			continue
		}
		if first, dup := byName[u.Name]; dup {
			diag.ReportError(r, diag.ProjDuplicateUnit, source.Span{File: u.Source},
				fmt.Sprintf("unit '%s' is already defined by %s", u.Name, first.Path)).
				WithNote(source.Span{File: first.Source}, "first definition here").
				Emit()
			continue
		}
		byName[u.Name] = u
		nodes = append(nodes, u)
	}

	ok := make(map[string]bool, len(nodes))
	for _, u := range nodes {
		ok[u.Name] = true
		for _, imp := range u.Unit.Imports {
			if _, found := byName[imp]; !found {
				diag.ReportError(r, diag.ProjMissingImport, source.Span{File: u.Source},
					fmt.Sprintf("unit '%s' imports '%s', which is not part of the build", u.Name, imp)).Emit()
				ok[u.Name] = false
			}
		}
	}

	placed := make(map[string]bool, len(nodes))
	var waves [][]*UnitResult
	for {
		var wave []*UnitResult
		for _, u := range nodes {
			if placed[u.Name] || !ok[u.Name] {
				continue
			}
			ready := true
			for _, imp := range u.Unit.Imports {
				if !placed[imp] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, u)
			}
		}
		if len(wave) == 0 {
			break
		}
		// юниты волны отмечаются только после её сборки
		for _, u := range wave {
			placed[u.Name] = true
		}
		waves = append(waves, wave)
	}

	// всё, что осталось без волны при корректных импортах, стоит в цикле
	// или зависит от юнита, который собрать нельзя
	for _, u := range nodes {
		if placed[u.Name] || !ok[u.Name] {
			continue
		}
		if cycle := findCycle(u.Name, byName); cycle != nil {
			diag.ReportError(r, diag.ProjImportCycle, source.Span{File: u.Source},
				"import cycle: "+strings.Join(cycle, " -> ")).Emit()
			continue
		}
		diag.NewReportBuilder(r, diag.SevInfo, diag.ProjInfo, source.Span{File: u.Source},
			fmt.Sprintf("unit '%s' skipped: it depends on a unit that cannot be built", u.Name)).Emit()
	}
	return waves
}

// findCycle returns the cycle through start as a closed path
// (a -> b -> a), or nil if start is not on one.
func findCycle(start string, byName map[string]*UnitResult) []string {
	var path []string
	onPath := make(map[string]bool)
	visited := make(map[string]bool)
	var walk func(name string) []string
	walk = func(name string) []string {
		if name == start && len(path) > 0 {
			return append(slices.Clone(path), start)
		}
		if onPath[name] || visited[name] {
			return nil
		}
		u := byName[name]
		if u == nil {
			return nil
		}
		visited[name] = true
		onPath[name] = true
		path = append(path, name)
		for _, imp := range u.Unit.Imports {
			if c := walk(imp); c != nil {
				return c
			}
		}
		path = path[:len(path)-1]
		onPath[name] = false
		return nil
	}
	return walk(start)
}
