// Package match combines a compiled pattern index with the line scanner to
// implement the per-line output policy: default, inverted, exact,
// include-non-IP, and counting modes.
package match

import (
	"bytes"

	"github.com/zlobste/grepcidr/pattern"
	"github.com/zlobste/grepcidr/scan"
)

// Options configures an Engine's per-line policy. Strict CIDR alignment
// (-s) is consumed at pattern-compile time (see pattern.Build) and has no
// representation here.
type Options struct {
	Invert       bool // -v
	Exact        bool // -x
	IncludeNonIP bool // -i
	Count        bool // -c
}

// Engine is the public driver surface: it owns a compiled index and a
// reusable scanner, and decides per line whether it contributes to output
// and/or the match counter. An Engine is not safe for concurrent use; each
// goroutine should own its own Engine over a shared, immutable
// *pattern.Index.
type Engine struct {
	idx *pattern.Index
	sc  *scan.Scanner
	opt Options

	matchedLines int
}

// New returns an Engine bound to idx under opt. idx must not be mutated for
// the Engine's lifetime; it is safe to share one *pattern.Index across many
// Engines.
func New(idx *pattern.Index, opt Options) *Engine {
	return &Engine{idx: idx, sc: scan.New(), opt: opt}
}

// Decision is the outcome of evaluating one line.
type Decision struct {
	Emit bool // whether the line should be written to output (ignored in count mode)
}

// Evaluate applies the engine's mode to one input line (terminator already
// stripped by the caller) and returns whether it should be emitted. In
// count mode the internal counter is still updated; callers in count mode
// should ignore Decision.Emit and read MatchCount after the run.
func (e *Engine) Evaluate(line []byte) Decision {
	matched, sawAddress := e.lineMatches(line)

	var emit bool
	switch {
	case !sawAddress:
		// A line with no address is never subject to invert: -i decides it
		// outright in both default and inverted mode.
		emit = e.opt.IncludeNonIP
	case e.opt.Invert:
		emit = !matched
	default:
		emit = matched
	}

	if emit {
		e.matchedLines++
	}
	if e.opt.Count {
		return Decision{Emit: false}
	}
	return Decision{Emit: emit}
}

// lineMatches applies the exact / scan-and-contains logic, independent of
// invert and include-non-IP, which Evaluate layers on top. sawAddress
// reports whether the line carried anything for Evaluate to judge at all.
func (e *Engine) lineMatches(line []byte) (matched bool, sawAddress bool) {
	if e.opt.Exact {
		trimmed := bytes.TrimSpace(line)
		return e.exactMatch(trimmed)
	}
	return e.anyCandidateMatches(line)
}

// exactMatch requires the entire trimmed line to parse as a single address
// of either family, with no trailing bytes, and checks that one address
// against the index. A trimmed line that isn't exactly one address counts
// as no address seen, not as a non-match.
func (e *Engine) exactMatch(trimmed []byte) (matched bool, sawAddress bool) {
	s := e.sc.Scan(trimmed)
	if len(s) != 1 {
		return false, false
	}
	c := s[0]
	if c.Start != 0 || c.End != len(trimmed) {
		return false, false
	}
	return e.candidateMatches(c), true
}

// anyCandidateMatches scans line for candidates. In non-invert mode it
// stops at the first match via ScanFunc's early exit; invert mode must see
// every candidate before it can decide, so it runs the scan to completion.
func (e *Engine) anyCandidateMatches(line []byte) (matched bool, sawAddress bool) {
	e.sc.ScanFunc(line, func(c scan.Candidate) bool {
		sawAddress = true
		if e.candidateMatches(c) {
			matched = true
			return e.opt.Invert // keep scanning only when inverted
		}
		return true
	})
	return matched, sawAddress
}

// candidateMatches applies the v6-authoritative tie-break: an embedded-v4
// equivalent is consulted only when the index carries no v6 coverage at
// all.
func (e *Engine) candidateMatches(c scan.Candidate) bool {
	switch c.Family {
	case scan.FamilyV4:
		return e.idx.ContainsV4(c.V4)
	case scan.FamilyV6:
		if e.idx.ContainsV6(c.V6) {
			return true
		}
		if c.EmbeddedV4 != nil && !e.idx.HasV6() {
			return e.idx.ContainsV4(*c.EmbeddedV4)
		}
		return false
	default:
		return false
	}
}

// MatchCount returns the number of lines that have matched so far under the
// engine's mode (post-invert). In count mode this is the value the driver
// should print at end of run.
func (e *Engine) MatchCount() int { return e.matchedLines }
