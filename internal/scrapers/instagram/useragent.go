package instagram

import (
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/mazen160/go-random"
)

// the fallback pool covers the case where the fake-useragent cache cannot
// be populated (offline CI). four common desktop browsers.
var fallbackUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

func RandomUserAgent() string {
	if ua := browser.Random(); ua != "" {
		return ua
	}
	idx, err := random.IntRange(0, len(fallbackUserAgents))
	if err != nil {
		return fallbackUserAgents[0]
	}
	return fallbackUserAgents[idx]
}
