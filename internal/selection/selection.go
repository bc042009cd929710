// Package selection scores normalized posts and picks a balanced top subset.
package selection

import (
	"sort"
	"strconv"

	"github.com/socialpulse/content-engine/internal/content"
)

// DefaultTarget is the desired output size; infeasible pools fall back
// through the smaller multiples of three.
const DefaultTarget = 9

// Score computes the engagement score for a post from its platform and
// stats. Pure and deterministic; unknown platforms score zero and therefore
// rank last by construction.
func Score(platform content.Platform, stats content.Stats) float64 {
	views := float64(stats.Get("views"))
	likes := float64(stats.Get("likes"))

	var score float64
	switch platform {
	case content.PlatformTwitter:
		retweets := float64(stats.Get("retweets"))
		replies := float64(stats.Get("replies"))
		score = views*0.3 + likes*2 + retweets*3 + replies*1.5
	case content.PlatformLinkedIn:
		comments := float64(stats.Get("comments"))
		score = comments*5 + likes
	case content.PlatformYouTube:
		score = views * 0.1
	case content.PlatformTikTok:
		score = views * 0.2
	case content.PlatformInstagram:
		score = views * 0.5
	default:
		score = 0
	}
	if score < 0 {
		return 0
	}
	return score
}

// candidate carries a scored post along with its position in the input pool,
// which breaks score ties (first seen wins).
type candidate struct {
	post  content.NormalizedPost
	score float64
	seq   int
}

// group is one URL group's candidates, already ranked best-first.
type group struct {
	key        string
	candidates []candidate
}

// Select picks at most target posts from the pool, spread as evenly as
// possible across the distinct URL groups present. The result is grouped by
// URL submission order, while post_number labels rank the selected set
// globally by descending score. Deterministic and idempotent for a fixed
// pool.
func Select(pool []content.NormalizedPost, target int) []content.ScoredPost {
	if target <= 0 {
		target = DefaultTarget
	}
	groups := buildGroups(pool)
	if len(groups) == 0 {
		return []content.ScoredPost{}
	}

	total := 0
	minGroup := len(groups[0].candidates)
	for _, g := range groups {
		total += len(g.candidates)
		if len(g.candidates) < minGroup {
			minGroup = len(g.candidates)
		}
	}

	actual := chooseTarget(target, len(groups), total, minGroup)

	base := actual / len(groups)
	picked := make([][]candidate, len(groups))
	pickedCount := 0
	var leftovers []candidate
	for i, g := range groups {
		n := base
		if n > len(g.candidates) {
			n = len(g.candidates)
		}
		picked[i] = append(picked[i], g.candidates[:n]...)
		pickedCount += n
		leftovers = append(leftovers, g.candidates[n:]...)
	}

	// Remainder slots go to the highest-scoring unused candidates globally.
	sortByScore(leftovers)
	groupIndex := make(map[string]int, len(groups))
	for i, g := range groups {
		groupIndex[g.key] = i
	}
	for _, c := range leftovers {
		if pickedCount >= actual {
			break
		}
		i := groupIndex[c.post.URLGroup]
		picked[i] = append(picked[i], c)
		pickedCount++
	}

	// Assemble output grouped by URL submission order, best-first inside
	// each group.
	var out []content.ScoredPost
	for i := range picked {
		sortByScore(picked[i])
		for _, c := range picked[i] {
			out = append(out, content.ScoredPost{
				NormalizedPost:  c.post,
				EngagementScore: c.score,
			})
		}
	}
	number(out)
	return out
}

// buildGroups scores the pool and groups it by URL group in first-seen
// order, each group ranked by descending score.
func buildGroups(pool []content.NormalizedPost) []group {
	index := make(map[string]int)
	var groups []group
	for seq, post := range pool {
		if post.URLGroup == "" {
			continue
		}
		c := candidate{post: post, score: Score(post.Platform, post.Stats), seq: seq}
		i, ok := index[post.URLGroup]
		if !ok {
			i = len(groups)
			index[post.URLGroup] = i
			groups = append(groups, group{key: post.URLGroup})
		}
		groups[i].candidates = append(groups[i].candidates, c)
	}
	for i := range groups {
		sortByScore(groups[i].candidates)
	}
	return groups
}

// chooseTarget walks the target tiers (9, 6, 3 by default) and returns the
// largest one every group can cover with its base share. When no tier is
// feasible the engine selects whatever is available, capped at the requested
// target; running short is never an error.
func chooseTarget(target, groupCount, total, minGroup int) int {
	for _, t := range tiers(target) {
		if total >= t && minGroup >= t/groupCount {
			return t
		}
	}
	if total < target {
		return total
	}
	return target
}

func tiers(target int) []int {
	if target%3 != 0 {
		return []int{target}
	}
	return []int{target, target / 3 * 2, target / 3}
}

func sortByScore(cs []candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].score != cs[j].score {
			return cs[i].score > cs[j].score
		}
		return cs[i].seq < cs[j].seq
	})
}

// number assigns post_1..post_N by descending score over the whole selected
// set, leaving the slice order untouched.
func number(selected []content.ScoredPost) {
	order := make([]int, len(selected))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return selected[order[a]].EngagementScore > selected[order[b]].EngagementScore
	})
	for rank, i := range order {
		selected[i].PostNumber = "post_" + strconv.Itoa(rank+1)
	}
}
