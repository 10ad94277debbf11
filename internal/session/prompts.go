package session

import "fmt"

// Canned analysis questions routed through the same ask path as custom
// questions, so they share narrowing, truncation, and history.

const insightsPrompt = `Based on this reddit account data, please provide insights about:

1. Posting patterns: what topics does this user typically post about?
2. Community engagement: which communities are they most active in and why?
3. Content style: what's their commenting/posting style?
4. Interests: what are their main interests based on their activity?
5. Engagement quality: how well do their posts and comments perform?

Please be specific and provide actionable insights where possible.`

const improvementPrompt = `Based on my reddit activity data, please suggest ways I could:

1. Improve engagement: how can I get better responses to my posts and comments?
2. Discover communities: what new subreddits might I enjoy based on my interests?
3. Content strategy: how can I create more valuable content?
4. Community participation: how can I be a better community member?
5. Growth opportunities: how can I grow my karma and positive impact?

Please provide specific, actionable advice based on my actual reddit data.`

func comparePrompt(sub1, sub2 string) string {
	return fmt.Sprintf(`Based on my reddit activity data, please compare my participation in r/%s vs r/%s:

1. Activity level: how active am I in each community?
2. Content type: what kind of content do I post/comment in each?
3. Engagement: how well do my contributions perform in each?
4. Community fit: which community seems to be a better fit for me and why?
5. Recommendations: how can I improve my participation in each?

If I haven't been active in one or both of these subreddits, please say so and suggest similar communities I am active in.`, sub1, sub2)
}

func contentPrompt(sub string) string {
	return fmt.Sprintf(`Based on my reddit activity and interests, please suggest content ideas for r/%s:

1. Post ideas: what kind of posts would be valuable for this community and align with my interests?
2. Discussion topics: what discussions could I start that would engage the community?
3. Content format: what format (text, link, image) works best for my style and this subreddit?
4. Timing: based on my activity patterns, when might be the best time to post?
5. Engagement strategy: how can I encourage meaningful discussions?

Please base suggestions on my actual interests and past successful content.`, sub)
}
