package sources

import "regexp"

// Builtin returns the default AI and technology source set. It is merged
// into a loaded catalog, or used alone when no categories file is
// available.
func Builtin() *Catalog {
	srcs := []SourceConfig{
		{
			Key: "aibusiness", Name: "AI Business", Category: "AI/Technology",
			Strategies: []Strategy{
				Feed("https://aibusiness.com/feed"),
				AutoDiscover("https://aibusiness.com/"),
			},
		},
		{
			Key: "ainews", Name: "Artificial Intelligence News", Category: "AI/Technology",
			Strategies: []Strategy{
				Feed("https://www.artificialintelligence-news.com/feed/"),
				AutoDiscover("https://www.artificialintelligence-news.com/"),
			},
		},
		{
			Key: "reuters_tech", Name: "Reuters Technology", Category: "Technology",
			Strategies: []Strategy{
				Feed("https://feeds.reuters.com/reuters/technologyNews"),
				Scrape("https://www.reuters.com/technology/",
					regexp.MustCompile(`^https?://www\.reuters\.com/technology/[^#?]+/?$`)),
			},
		},
		{
			Key: "reuters_ai", Name: "Reuters AI", Category: "AI/Technology",
			Strategies: []Strategy{
				Scrape("https://www.reuters.com/technology/ai/",
					regexp.MustCompile(`^https?://www\.reuters\.com/technology/ai/[^#?]+/?$`)),
			},
		},
		{
			Key: "ibm_think", Name: "IBM Think", Category: "AI/Technology",
			Strategies: []Strategy{
				AutoDiscover("https://newsroom.ibm.com/"),
				AutoDiscover("https://www.ibm.com/think"),
				Scrape("https://www.ibm.com/think",
					regexp.MustCompile(`^https?://www\.ibm\.com/(?:think|blog/[^/]+/[^/]+)[^#?]*/?$`)),
			},
		},
		{
			Key: "trendhunter_ai", Name: "Trend Hunter AI", Category: "AI/Trends",
			Strategies: []Strategy{
				Feed("https://www.trendhunter.com/rss/technology"),
				AutoDiscover("https://www.trendhunter.com/"),
			},
		},
		{
			Key: "techcrunch", Name: "TechCrunch", Category: "Technology",
			Strategies: []Strategy{
				Feed("https://techcrunch.com/feed/"),
				AutoDiscover("https://techcrunch.com/"),
			},
		},
		{
			Key: "venturebeat_ai", Name: "VentureBeat AI", Category: "AI/Technology",
			Strategies: []Strategy{
				Feed("https://venturebeat.com/ai/feed/"),
				AutoDiscover("https://venturebeat.com/ai/"),
			},
		},
		{
			Key: "mit_news_ai", Name: "MIT News AI", Category: "AI/Research",
			Strategies: []Strategy{
				Feed("https://news.mit.edu/rss/topic/artificial-intelligence2"),
				AutoDiscover("https://news.mit.edu/topic/artificial-intelligence2"),
			},
		},
		{
			Key: "openai_blog", Name: "OpenAI Blog", Category: "AI/Research",
			Strategies: []Strategy{
				Feed("https://openai.com/blog/rss.xml"),
				AutoDiscover("https://openai.com/blog"),
			},
		},
	}

	descriptions := map[string]string{
		"AI/Technology": "Artificial intelligence industry news",
		"Technology":    "General technology news, filtered to AI stories",
		"AI/Trends":     "Consumer and product trends in AI",
		"AI/Research":   "Research labs and academic AI news",
	}

	cat := &Catalog{Sources: srcs}
	seen := map[string]bool{}
	for _, s := range srcs {
		if seen[s.Category] {
			continue
		}
		seen[s.Category] = true
		cat.Categories = append(cat.Categories, Category{Name: s.Category, Description: descriptions[s.Category]})
	}
	return cat
}
