package analyze

import (
	"fmt"
	"strings"
)

func analysisPrompt(username string, year int) string {
	return strings.TrimSpace(fmt.Sprintf(`Research and analyze @%[1]s's entire X activity for %[2]d.

Your task:
1. Search for ALL posts from @%[1]s throughout %[2]d (January through December)
2. For each post found, capture: content, date, engagement metrics (likes, retweets, replies), media types (images, videos), and topics discussed
3. Analyze sentiment, posting patterns, and trends across the year
4. Identify: top posts, posting frequency, best month, engagement patterns, themes/topics, writing style, media engagement

Return a comprehensive analysis with specific data points. Gather posts from across all months, and run calculations where needed.

After gathering all data, provide your analysis as a single JSON object. Note the month names for all time-based findings.`, username, year))
}
