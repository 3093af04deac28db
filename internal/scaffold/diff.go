package scaffold

import (
	"fmt"
	"strings"
)

const diffContext = 3

type lineOp struct {
	kind byte // ' ', '-' or '+'
	text string
	a, b int // 1-based line numbers in old and new, 0 when absent
}

// UnifiedDiff returns a unified diff of two texts, or "" when they match.
func UnifiedDiff(oldName, newName, oldText, newText string) string {
	if oldText == newText {
		return ""
	}
	ops := diffLines(lines(oldText), lines(newText))

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n+++ %s\n", oldName, newName)
	for _, h := range hunks(ops) {
		writeHunk(&out, ops[h[0]:h[1]])
	}
	return out.String()
}

func lines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// diffLines walks a longest-common-subsequence table to produce the edit
// script from a to b.
func diffLines(a, b []string) []lineOp {
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	var ops []lineOp
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case i < len(a) && j < len(b) && a[i] == b[j]:
			ops = append(ops, lineOp{kind: ' ', text: a[i], a: i + 1, b: j + 1})
			i++
			j++
		case j < len(b) && (i == len(a) || lcs[i][j+1] >= lcs[i+1][j]):
			ops = append(ops, lineOp{kind: '+', text: b[j], b: j + 1})
			j++
		default:
			ops = append(ops, lineOp{kind: '-', text: a[i], a: i + 1})
			i++
		}
	}
	return ops
}

// hunks returns [start, end) ranges of ops around each change, merging
// ranges whose context overlaps.
func hunks(ops []lineOp) [][2]int {
	var out [][2]int
	for i, op := range ops {
		if op.kind == ' ' {
			continue
		}
		start := max(i-diffContext, 0)
		end := min(i+diffContext+1, len(ops))
		if n := len(out); n > 0 && start <= out[n-1][1] {
			out[n-1][1] = end
			continue
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

func writeHunk(out *strings.Builder, ops []lineOp) {
	var aStart, bStart, aLen, bLen int
	for _, op := range ops {
		if op.kind != '+' {
			if aStart == 0 {
				aStart = op.a
			}
			aLen++
		}
		if op.kind != '-' {
			if bStart == 0 {
				bStart = op.b
			}
			bLen++
		}
	}
	fmt.Fprintf(out, "@@ -%d,%d +%d,%d @@\n", aStart, aLen, bStart, bLen)
	for _, op := range ops {
		out.WriteByte(op.kind)
		out.WriteString(op.text)
		out.WriteByte('\n')
	}
}
