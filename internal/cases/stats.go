package cases

// GroupCount is the number of cases under one "module > feature" pair.
type GroupCount struct {
	Module  string `json:"module"`
	Feature string `json:"feature"`
	Count   int    `json:"count"`
}

// Summary aggregates a parsed case list.
type Summary struct {
	Total      int          `json:"total"`
	Groups     []GroupCount `json:"groups"`
	ByPriority [4]int       `json:"by_priority"` // Index 0 is P1
}

// Uncategorized labels a missing module or feature in a Summary.
const Uncategorized = "未分类"

// Summarize counts records per module/feature, in first-seen order, and
// per priority. Priorities outside 1..4 are counted as P4.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records), Groups: []GroupCount{}}
	index := make(map[[2]string]int)
	for _, r := range records {
		key := [2]string{orUncategorized(r.Module), orUncategorized(r.Feature)}
		i, ok := index[key]
		if !ok {
			i = len(s.Groups)
			index[key] = i
			s.Groups = append(s.Groups, GroupCount{Module: key[0], Feature: key[1]})
		}
		s.Groups[i].Count++

		switch r.Priority {
		case 1, 2, 3:
			s.ByPriority[r.Priority-1]++
		default:
			s.ByPriority[3]++
		}
	}
	return s
}

// Percent returns the share of priority p (1..4) in percent.
func (s Summary) Percent(p int) float64 {
	if s.Total == 0 || p < 1 || p > 4 {
		return 0
	}
	return float64(s.ByPriority[p-1]) / float64(s.Total) * 100
}

func orUncategorized(s string) string {
	if s == "" {
		return Uncategorized
	}
	return s
}
