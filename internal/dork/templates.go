// Package dork discovers domains through search-engine dork queries built
// from keywords. A fast HTTP path scrapes result pages directly; a headless
// browser path renders them when the fast path comes back empty.
package dork

import "strings"

// defaultCountryTLDs feed the country-specific search template.
var defaultCountryTLDs = []string{
	".us", ".uk", ".ca", ".au", ".de", ".fr", ".ru", ".cn", ".jp", ".br", ".in",
}

// templates are expanded per keyword. Placeholders: {keyword},
// {related_keyword}, {domain}, {country_tld}.
var templates = []string{
	`"{keyword}"`,
	`intitle:"{keyword}"`,
	`intext:"{keyword}"`,
	`inurl:"{keyword}"`,
	`site:{domain} "{keyword}"`,
	`"{keyword}" filetype:pdf`,
	`"{keyword}" filetype:doc OR filetype:docx`,
	`related:{domain}`,
	`site:.gov "{keyword}"`,
	`site:.edu "{keyword}"`,
	`site:.org "{keyword}"`,
	`site:.com "{keyword}"`,
	`allintitle: "{keyword}"`,
	`allintext: "{keyword}"`,
	`allinurl: "{keyword}"`,
	`"{keyword}" -site:wikipedia.org`,
	`"{keyword}" AND "{related_keyword}"`,
	`"{keyword}" OR "{related_keyword}"`,
	`intitle:"{keyword}" intext:"{related_keyword}"`,
	`"{keyword}" site:{country_tld}`,
}

// GenerateDorks expands the templates over keywords. targetedDomains feed the
// domain-specific templates and may be empty; those templates are then
// skipped. The result is deduplicated and ordered deterministically.
func GenerateDorks(keywords, targetedDomains []string) []string {
	related := relatedKeywords(keywords)

	seen := make(map[string]struct{})
	var dorks []string
	add := func(d string) {
		if _, dup := seen[d]; dup {
			return
		}
		seen[d] = struct{}{}
		dorks = append(dorks, d)
	}

	for _, kw := range keywords {
		for _, tpl := range templates {
			switch {
			case strings.Contains(tpl, "{related_keyword}"):
				for _, rel := range related {
					if rel == kw {
						continue
					}
					add(expand(tpl, kw, rel, "", ""))
				}
			case strings.Contains(tpl, "{domain}"):
				for _, domain := range targetedDomains {
					add(expand(tpl, kw, "", domain, ""))
				}
			case strings.Contains(tpl, "{country_tld}"):
				for _, tld := range defaultCountryTLDs {
					add(expand(tpl, kw, "", "", tld))
				}
			default:
				add(expand(tpl, kw, "", "", ""))
			}
		}
	}
	return dorks
}

// relatedKeywords pairs nearby keywords into two-word phrases used by the
// dual-keyword templates. Falls back to the keywords themselves when there
// is nothing to pair.
func relatedKeywords(keywords []string) []string {
	var related []string
	if len(keywords) > 1 {
		for i := 0; i < len(keywords) && i < 5; i++ {
			for j := i + 1; j < len(keywords) && j < i+3; j++ {
				related = append(related, keywords[i]+" "+keywords[j])
			}
		}
	}
	if len(related) == 0 {
		related = append(related, keywords...)
	}
	return related
}

func expand(tpl, keyword, related, domain, tld string) string {
	r := strings.NewReplacer(
		"{keyword}", keyword,
		"{related_keyword}", related,
		"{domain}", domain,
		"{country_tld}", tld,
	)
	return r.Replace(tpl)
}
