package transcribe

import (
	"strings"
	"unicode"
)

// WERResult holds word error rate details for one transcript.
type WERResult struct {
	WER           float64 // (S + I + D) / RefWords
	Substitutions int
	Insertions    int
	Deletions     int
	RefWords      int
}

// editCell is one entry of the alignment table; it carries the operation
// counts of the cheapest path that reaches it.
type editCell struct {
	subs, ins, dels int
}

func (c editCell) cost() int { return c.subs + c.ins + c.dels }

// ComputeWER aligns hypothesis against reference word by word. Both texts
// are lowercased and stripped of punctuation first, so vosk's lowercase
// output and whisper's punctuated output compare fairly.
func ComputeWER(reference, hypothesis string) WERResult {
	ref := words(reference)
	hyp := words(hypothesis)
	if len(ref) == 0 {
		return WERResult{}
	}

	prev := make([]editCell, len(hyp)+1)
	for j := range prev {
		prev[j] = editCell{ins: j}
	}
	for i := 1; i <= len(ref); i++ {
		cur := make([]editCell, len(hyp)+1)
		cur[0] = editCell{dels: i}
		for j := 1; j <= len(hyp); j++ {
			if ref[i-1] == hyp[j-1] {
				cur[j] = prev[j-1]
				continue
			}
			best := prev[j-1]
			best.subs++
			if del := prev[j]; del.cost()+1 < best.cost() {
				best = del
				best.dels++
			}
			if ins := cur[j-1]; ins.cost()+1 < best.cost() {
				best = ins
				best.ins++
			}
			cur[j] = best
		}
		prev = cur
	}

	end := prev[len(hyp)]
	return WERResult{
		WER:           float64(end.cost()) / float64(len(ref)),
		Substitutions: end.subs,
		Insertions:    end.ins,
		Deletions:     end.dels,
		RefWords:      len(ref),
	}
}

func words(s string) []string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Fields(s)
}
