package course

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kohkiet/swp-lms/core"
)

// minSearchRatio is the similarity below which a course is not a fuzzy match.
const minSearchRatio = .6

// Search ranks courses against query on the client side: substring matches on
// the title or description come first, then fuzzy matches on title words.
// An empty query returns courses unchanged.
func Search(courses []Course, query string) []Course {
	q := core.CleanString(query, true /* lower */)
	if q == "" {
		return courses
	}

	type hit struct {
		course Course
		rank   int // 0: title contains, 1: description contains, 2: fuzzy
		ratio  float64
	}
	hits := make([]hit, 0, len(courses))
	for _, c := range courses {
		title := strings.ToLower(c.Title)
		switch {
		case strings.Contains(title, q):
			hits = append(hits, hit{course: c, rank: 0, ratio: similarity(q, title)})
		case strings.Contains(strings.ToLower(c.Description), q):
			hits = append(hits, hit{course: c, rank: 1})
		default:
			if r := bestWordRatio(q, title); r >= minSearchRatio {
				hits = append(hits, hit{course: c, rank: 2, ratio: r})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return hits[i].ratio > hits[j].ratio
	})
	res := make([]Course, len(hits))
	for i, h := range hits {
		res[i] = h.course
	}
	return res
}

func similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// bestWordRatio compares q with every run of title words of the same length.
func bestWordRatio(q, title string) float64 {
	words := strings.Fields(title)
	n := len(strings.Fields(q))
	if n == 0 || len(words) == 0 {
		return 0
	}
	if n > len(words) {
		n = len(words)
	}
	var best float64
	for i := 0; i+n <= len(words); i++ {
		if r := similarity(q, strings.Join(words[i:i+n], " ")); r > best {
			best = r
		}
	}
	return best
}
