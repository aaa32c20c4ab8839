package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"doctor_reputation/internal/domain"
)

// Selectors for the IWantGreatCare markup. Kept together so a layout change is a one-place edit.
const (
	selProfileEntity = ".row.entity.pale-green.clearfix"
	selProfileLink   = ".doc-text h5 a"
	selSpecialties   = ".specialties .green"
	selHospital      = ".locations a.green"
	selRating        = ".rating"
	selFilledStar    = `img[src*="icon-star-yellow-full"]`
	selImage         = ".doc-image img"
	selShowAll       = "a.show-all-btn-large"

	selReviewEntity = ".review"
	selReviewText   = ".review-text"
	selReviewAuthor = ".review-author"
	selReviewDate   = ".review-date"
)

var firstInt = regexp.MustCompile(`\d+`)

// ProfilesFromHTML extracts accepted profiles from one search or show-all page.
func ProfilesFromHTML(doc *goquery.Document, base *url.URL, sourceID string, seen SeenKeys, r Rules) []domain.ProfileRecord {
	var out []domain.ProfileRecord
	doc.Find(selProfileEntity).Each(func(_ int, el *goquery.Selection) {
		link := el.Find(selProfileLink).First()
		href, _ := link.Attr("href")
		profileURL := resolve(base, href)
		if strings.TrimSpace(href) == "" {
			profileURL = ""
		}

		ratingSel := el.Find(selRating).First()
		p := domain.ProfileRecord{
			SourceID:    sourceID,
			Name:        strings.TrimSpace(link.Text()),
			Specialties: SplitSpecialties(el.Find(selSpecialties).First().Text()),
			Hospital:    strings.TrimSpace(el.Find(selHospital).First().Text()),
			Location:    domain.Location{City: Unknown, State: Unknown},
			Rating:      float64(ClampRating(ratingSel.Find(selFilledStar).Length())),
			ReviewCount: countFromText(ownText(ratingSel)),
			ProfileURL:  profileURL,
		}
		if img, ok := el.Find(selImage).First().Attr("src"); ok && strings.TrimSpace(img) != "" {
			u := resolve(base, img)
			p.ImageURL = &u
		}
		if slug := slugFromPath(href); slug != "" {
			p.Slug = &slug
		}
		if Accept(p, seen, r) {
			out = append(out, p)
		}
	})
	return out
}

// ShowAllLinks returns absolute URLs of the "show all" expansion pages.
func ShowAllLinks(doc *goquery.Document, base *url.URL) []string {
	var out []string
	doc.Find(selShowAll).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
			out = append(out, resolve(base, href))
		}
	})
	return out
}

// ReviewsFromHTML extracts reviews from one numbered review page.
func ReviewsFromHTML(doc *goquery.Document) []domain.ReviewRecord {
	var out []domain.ReviewRecord
	doc.Find(selReviewEntity).Each(func(_ int, el *goquery.Selection) {
		stars := el.Find(selRating).First().Find(selFilledStar).Length()
		rv, ok := Review(
			el.Find(selReviewAuthor).First().Text(),
			el.Find(selReviewText).First().Text(),
			stars,
			el.Find(selReviewDate).First().Text(),
		)
		if ok {
			out = append(out, rv)
		}
	})
	return out
}

// Review builds a ReviewRecord; comment text is the only required field.
func Review(author, text string, rating int, dateText string) (domain.ReviewRecord, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ReviewRecord{}, false
	}
	rv := domain.ReviewRecord{
		CommentText:   text,
		CommentLength: utf8.RuneCountInString(text),
		Rating:        ClampRating(rating),
	}
	if a := strings.TrimSpace(author); a != "" {
		rv.Author = &a
	}
	if d := strings.TrimSpace(dateText); d != "" {
		rv.RawDateText = &d
		rv.CreatedAt = ParseDate(d)
	}
	return rv, true
}

// ownText concatenates the direct text-node children of s.
func ownText(s *goquery.Selection) string {
	return s.Contents().FilterFunction(func(_ int, c *goquery.Selection) bool {
		return goquery.NodeName(c) == "#text"
	}).Text()
}

func countFromText(s string) int {
	m := firstInt.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	u, err := url.Parse(ref)
	if err != nil || base == nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func slugFromPath(p string) string {
	p = strings.TrimSpace(p)
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	parts := strings.Split(p, "/")
	return parts[len(parts)-1]
}
