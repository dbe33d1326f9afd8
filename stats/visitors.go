package stats

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Visitors tracks unique client IPs and the most inspected sites. It is
// kept in memory only.
type Visitors struct {
	mutex       sync.RWMutex
	lastSeen    map[string]time.Time // IP -> last visit
	popularURLs map[string]int       // cleaned URL -> count
	now         func() time.Time
}

// URLCount is one entry of the popular URL ranking
type URLCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

func NewVisitors() *Visitors {
	return &Visitors{
		lastSeen:    make(map[string]time.Time),
		popularURLs: make(map[string]int),
		now:         time.Now,
	}
}

// TrackVisitor records a visit from ip
func (v *Visitors) TrackVisitor(ip string) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.lastSeen[ip] = v.now()
}

// TrackURL counts an inspected page under its scheme, host and path
func (v *Visitors) TrackURL(pageURL string) {
	cleaned := cleanURL(pageURL)
	if cleaned == "" {
		return
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.popularURLs[cleaned]++
}

// cleanURL drops query and fragment, returns "" for local or API addresses
func cleanURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	if strings.Contains(u.Host, "localhost") ||
		strings.Contains(u.Host, "127.0.0.1") ||
		strings.Contains(strings.ToLower(u.Path), "/api/") {
		return ""
	}

	cleaned := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		cleaned += u.Path
	}

	return strings.TrimSuffix(cleaned, "/")
}

// UniqueVisitors returns the number of distinct IPs seen within window
func (v *Visitors) UniqueVisitors(window time.Duration) int {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	count := 0
	cutoff := v.now().Add(-window)
	for _, lastVisit := range v.lastSeen {
		if lastVisit.After(cutoff) {
			count++
		}
	}

	return count
}

// PopularURLs returns the n most inspected URLs, most frequent first
func (v *Visitors) PopularURLs(n int) []URLCount {
	v.mutex.RLock()
	ranking := make([]URLCount, 0, len(v.popularURLs))
	for u, count := range v.popularURLs {
		ranking = append(ranking, URLCount{URL: u, Count: count})
	}
	v.mutex.RUnlock()

	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Count != ranking[j].Count {
			return ranking[i].Count > ranking[j].Count
		}
		return ranking[i].URL < ranking[j].URL
	})

	if len(ranking) > n {
		ranking = ranking[:n]
	}
	return ranking
}

// Prune forgets visitors not seen within window
func (v *Visitors) Prune(window time.Duration) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	cutoff := v.now().Add(-window)
	for ip, lastVisit := range v.lastSeen {
		if !lastVisit.After(cutoff) {
			delete(v.lastSeen, ip)
		}
	}
}
