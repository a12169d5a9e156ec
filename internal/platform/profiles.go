package platform

import "regexp"

// Profile is the static recognition config for one platform: its canonical
// domains plus the ordered path shapes that identify a concrete post. Each
// shape captures the canonical post id in its first group. Shapes are
// matched against the path, with the raw query appended so query-addressed
// posts (story.php, watch?v=) are recognizable too.
type Profile struct {
	Platform string
	Domains  []string
	Shapes   []*regexp.Regexp
}

func defaultProfiles() []Profile {
	return []Profile{
		{
			Platform: "x",
			Domains:  []string{"x.com", "twitter.com"},
			Shapes: []*regexp.Regexp{
				regexp.MustCompile(`^/[A-Za-z0-9_]+/status(?:es)?/(\d+)`),
				regexp.MustCompile(`^/i/web/status/(\d+)`),
			},
		},
		{
			Platform: "instagram",
			Domains:  []string{"instagram.com"},
			Shapes: []*regexp.Regexp{
				regexp.MustCompile(`^/(?:p|reel|tv)/([A-Za-z0-9_-]+)`),
			},
		},
		{
			Platform: "facebook",
			Domains:  []string{"facebook.com", "fb.com", "fb.watch"},
			Shapes: []*regexp.Regexp{
				regexp.MustCompile(`^/[^/]+/posts/([A-Za-z0-9.]+)`),
				regexp.MustCompile(`^/story\.php\?(?:.*&)?story_fbid=([A-Za-z0-9]+)`),
				regexp.MustCompile(`^/share/(?:p|r|v)/([A-Za-z0-9]+)`),
				regexp.MustCompile(`^/watch/?\?(?:.*&)?v=(\d+)`),
			},
		},
		{
			Platform: "linkedin",
			Domains:  []string{"linkedin.com"},
			Shapes: []*regexp.Regexp{
				regexp.MustCompile(`^/posts/[^/]*-activity-(\d+)`),
				regexp.MustCompile(`^/feed/update/urn:li:activity:(\d+)`),
			},
		},
		{
			Platform: "tiktok",
			Domains:  []string{"tiktok.com"},
			Shapes: []*regexp.Regexp{
				regexp.MustCompile(`^/@[^/]+/video/(\d+)`),
				regexp.MustCompile(`^/v/(\d+)`),
			},
		},
		{
			Platform: "threads",
			Domains:  []string{"threads.net", "threads.com"},
			Shapes: []*regexp.Regexp{
				regexp.MustCompile(`^/@[^/]+/post/([A-Za-z0-9_-]+)`),
			},
		},
		{
			Platform: "reddit",
			Domains:  []string{"reddit.com", "redd.it"},
			Shapes: []*regexp.Regexp{
				regexp.MustCompile(`^/r/[^/]+/comments/([a-z0-9]+)`),
			},
		},
		{
			Platform: "youtube",
			Domains:  []string{"youtube.com", "youtu.be"},
			Shapes: []*regexp.Regexp{
				regexp.MustCompile(`^/watch\?(?:.*&)?v=([A-Za-z0-9_-]{11})`),
				regexp.MustCompile(`^/shorts/([A-Za-z0-9_-]{11})`),
				regexp.MustCompile(`^/([A-Za-z0-9_-]{11})(?:\?|$)`),
			},
		},
	}
}
