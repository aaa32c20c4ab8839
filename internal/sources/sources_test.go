package sources_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctor_reputation/internal/domain"
	"doctor_reputation/internal/sources"
)

// fakeFetcher serves canned bodies keyed by path+query and records every URL it was asked for.
type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	calls  []string
}

func newFake() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{}, status: map[string]int{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, raw string, headers map[string]string) (domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, raw)
	if headers["User-Agent"] == "" {
		return domain.Document{}, errors.New("missing user agent")
	}
	u, _ := url.Parse(raw)
	key := u.Path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	if st, ok := f.status[key]; ok {
		return domain.Document{URL: raw, Status: st}, nil
	}
	body, ok := f.pages[key]
	if !ok {
		return domain.Document{URL: raw, Status: 404}, nil
	}
	return domain.Document{URL: raw, Status: 200, Body: []byte(body)}, nil
}

func (f *fakeFetcher) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		u, _ := url.Parse(c)
		if strings.HasPrefix(u.Path, prefix) {
			n++
		}
	}
	return n
}

/********** RateMDs **********/

func newRMS(t *testing.T, f domain.Fetcher) *sources.RateMDs {
	t.Helper()
	r, err := sources.NewRateMDs(f, sources.RateMDsConfig{BaseURL: "https://www.ratemds.com"})
	require.NoError(t, err)
	return r
}

func TestRateMDs_SearchStopsAtPageCapAndFilters(t *testing.T) {
	f := newFake()
	f.pages["/best-doctors/?json=true&page=1&text=smith"] = `{"total_pages": 9, "count": 180, "results": [
		{"full_name": "Dr. John Smith", "specialty_name": "Family Doctor", "url": "/doctor-ratings/1/Dr-John-Smith.html",
		 "slug": "dr-john-smith", "rating": {"average": 4.6, "count": 31},
		 "location": {"city": {"name": "Toronto", "province_name": "Ontario"}}},
		{"full_name": "Dr. No Reviews", "specialty_name": "Dentist", "url": "/doctor-ratings/2/x.html", "rating": {"average": 0, "count": 0}}
	]}`
	f.pages["/best-doctors/?json=true&page=2&text=smith"] = `{"total_pages": 9, "results": [
		{"full_name": "Dr. John Smith", "specialty_name": "Family Doctor", "url": "/doctor-ratings/1/Dr-John-Smith.html", "rating": {"average": 4.6, "count": 31}},
		{"full_name": "Dr. Ann Smith", "specialty_name": "Cardiologist, Internist", "url": "https://www.ratemds.com/doctor-ratings/3/Dr-Ann-Smith.html", "rating": {"average": "3,5", "count": 4}}
	]}`

	got, err := newRMS(t, f).SearchProfiles(context.Background(), "smith")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Dr. John Smith", got[0].Name)
	assert.Equal(t, "https://www.ratemds.com/doctor-ratings/1/Dr-John-Smith.html", got[0].ProfileURL)
	assert.Equal(t, domain.Location{City: "Toronto", State: "Ontario"}, got[0].Location)
	assert.Equal(t, 31, got[0].ReviewCount)
	require.NotNil(t, got[0].Slug)
	assert.Equal(t, "dr-john-smith", *got[0].Slug)

	assert.Equal(t, []string{"Cardiologist", "Internist"}, got[1].Specialties)
	assert.Equal(t, 3.5, got[1].Rating)
	assert.Equal(t, domain.Location{City: "Unknown", State: "Unknown"}, got[1].Location)

	assert.Equal(t, 2, f.count("/best-doctors/"), "search is capped at two pages")
}

func TestRateMDs_SearchKeepsFirstPageWhenSecondFails(t *testing.T) {
	f := newFake()
	f.pages["/best-doctors/?json=true&page=1&text=smith"] = `{"total_pages": 3, "results": [
		{"full_name": "Dr. John Smith", "specialty_name": "Family Doctor", "url": "/d/1", "rating": {"count": 3}}
	]}`
	f.status["/best-doctors/?json=true&page=2&text=smith"] = 503

	got, err := newRMS(t, f).SearchProfiles(context.Background(), "smith")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRateMDs_SearchFailureIsSourceUnavailable(t *testing.T) {
	f := newFake()
	f.status["/best-doctors/?json=true&page=1&text=smith"] = 500

	_, err := newRMS(t, f).SearchProfiles(context.Background(), "smith")
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestRateMDs_MalformedPayload(t *testing.T) {
	f := newFake()
	f.pages["/best-doctors/?json=true&page=1&text=smith"] = `{"doctors": []}`

	_, err := newRMS(t, f).SearchProfiles(context.Background(), "smith")
	assert.ErrorIs(t, err, domain.ErrSourceMalformed)

	f.pages["/best-doctors/?json=true&page=1&text=jones"] = `<html>`
	_, err = newRMS(t, f).SearchProfiles(context.Background(), "jones")
	assert.ErrorIs(t, err, domain.ErrSourceMalformed)
}

func TestRateMDs_SpecialityUsesDedicatedEndpoint(t *testing.T) {
	f := newFake()
	f.pages["/best-doctors/?json=true&page=1&specialty=cardiologist"] = `{"total_pages": 5, "results": [
		{"full_name": "Dr. Heart", "specialty_name": "Cardiologist", "url": "/d/9", "rating": {"count": 10}}
	]}`

	got, err := newRMS(t, f).SearchSpeciality(context.Background(), "cardiologist")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, f.count("/best-doctors/"))
}

func TestRateMDs_CollectReviewsFollowsTotalPages(t *testing.T) {
	f := newFake()
	f.pages["/doctor-ratings/dr-john-smith/?json=true&page=1"] = `{"total_pages": 2, "results": [
		{"id": 11, "comment": "Very thorough.", "average": 4.75, "created": "2021-03-04T10:00:00Z"},
		{"id": 12, "comment": "  ", "average": 1}
	]}`
	f.pages["/doctor-ratings/dr-john-smith/?json=true&page=2"] = `{"total_pages": 2, "results": [
		{"id": 11, "comment": "Very thorough.", "average": 4.75, "created": "2021-03-04T10:00:00Z"},
		{"id": 13, "comment": "Rushed me out.", "average": 1.2, "created": "2019-07-01"}
	]}`

	got, err := newRMS(t, f).CollectReviews(context.Background(), "dr-john-smith")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].Rating)
	assert.Equal(t, 2021, got[0].CreatedAt.Year())
	assert.Equal(t, 1, got[1].Rating)
	assert.Equal(t, 2, f.count("/doctor-ratings/"))
}

func TestRateMDs_CollectReviewsAbortsOnFailure(t *testing.T) {
	f := newFake()
	f.pages["/doctor-ratings/x/?json=true&page=1"] = `{"total_pages": 3, "results": [{"comment": "ok", "average": 4}]}`
	f.status["/doctor-ratings/x/?json=true&page=2"] = 502

	_, err := newRMS(t, f).CollectReviews(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

/********** RealSelf **********/

func newRS(t *testing.T, f domain.Fetcher) *sources.RealSelf {
	t.Helper()
	r, err := sources.NewRealSelf(f, sources.RealSelfConfig{
		SearchURL:      "https://search.realself.com",
		APIURL:         "https://api.realself.com/v1",
		SiteURL:        "https://www.realself.com",
		ImageBaseURL:   "https://img.realself.com",
		ReviewPageSize: 2,
	})
	require.NoError(t, err)
	return r
}

func TestRealSelf_SearchSingleCall(t *testing.T) {
	f := newFake()
	f.pages["/site_search?query=smith"] = `{"contents": [
		{"id": 77, "title": "Dr. Kim Smith", "specialty": "Plastic Surgeon", "uri": "/dr/kim-smith",
		 "image_path": "/p/77.jpg", "rating": 4.9, "review_count": 120, "city": "Austin", "state": "TX"},
		{"id": 78, "title": "Tummy tuck", "uri": "/procedure/tummy-tuck"}
	]}`

	got, err := newRS(t, f).SearchProfiles(context.Background(), "smith")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "77", got[0].ExternalID)
	assert.Equal(t, "https://www.realself.com/dr/kim-smith", got[0].ProfileURL)
	require.NotNil(t, got[0].ImageURL)
	assert.Equal(t, "https://img.realself.com/p/77.jpg", *got[0].ImageURL)
	assert.Equal(t, 1, f.count("/site_search"))
}

func TestRealSelf_ReviewsWithoutOwnIDAreKeptApart(t *testing.T) {
	f := newFake()
	f.pages["/v1/reviews?limit=2&offset=0&provider_id=77"] = `{"total": 2, "reviews": [
		{"provider_id": 77, "body": "Great result", "rating": 5, "created_at": "2022-05-01T00:00:00Z"},
		{"provider_id": 77, "body": "Would not return", "rating": 1, "created_at": "2021-05-01T00:00:00Z"}
	]}`

	got, err := newRS(t, f).CollectReviews(context.Background(), "77")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Great result", got[0].CommentText)
	assert.Equal(t, "Would not return", got[1].CommentText)
}

func TestRealSelf_ReviewsStopWhenTotalReached(t *testing.T) {
	f := newFake()
	f.pages["/v1/reviews?limit=2&offset=0&provider_id=77"] = `{"total": 3, "reviews": [
		{"id": 1, "body": "Great result", "rating": 5, "created_at": "2022-05-01T00:00:00Z"},
		{"id": 2, "body": "Fine", "rating": 4, "created_at": "2021-05-01T00:00:00Z"}
	]}`
	f.pages["/v1/reviews?limit=2&offset=2&provider_id=77"] = `{"total": 3, "reviews": [
		{"id": 3, "body": "Not worth it", "rating": 2, "created_at": "2020-05-01T00:00:00Z"}
	]}`

	got, err := newRS(t, f).CollectReviews(context.Background(), "77")
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 2, f.count("/v1/reviews"))
}

/********** IWantGreatCare **********/

const iwgcEntity = `<div class="row entity pale-green clearfix">
  <div class="doc-text"><h5><a href="/doctors/%[1]s">%[2]s</a></h5></div>
  <div class="specialties"><span class="green">General Surgery</span></div>
  <div class="rating"><img src="/i/icon-star-yellow-full.png"><img src="/i/icon-star-yellow-full.png"> %[3]s reviews</div>
</div>`

func entity(slug, name, count string) string {
	return strings.NewReplacer("%[1]s", slug, "%[2]s", name, "%[3]s", count).Replace(iwgcEntity)
}

func newIWGC(t *testing.T, f domain.Fetcher) *sources.IWGC {
	t.Helper()
	s, err := sources.NewIWGC(f, sources.IWGCConfig{BaseURL: "https://www.iwantgreatcare.org"})
	require.NoError(t, err)
	return s
}

func TestIWGC_SearchFollowsShowAllWithSharedSeenKeys(t *testing.T) {
	f := newFake()
	f.pages["/search?jsno=true&search=smith"] = "<html><body>" +
		entity("dr-a", "Dr A Smith", "5") +
		entity("dr-b", "Dr B Smith", "1") +
		`<a class="show-all-btn-large" href="/search/all?page=2">Show all</a>` +
		`<a class="show-all-btn-large" href="/search/broken">Show all</a>` +
		"</body></html>"
	f.pages["/search/all?page=2"] = "<html><body>" +
		entity("dr-a", "Dr A Smith", "5") +
		entity("dr-c", "Dr C Smith", "9") +
		"</body></html>"
	f.status["/search/broken"] = 500

	got, err := newIWGC(t, f).SearchProfiles(context.Background(), "smith")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Dr A Smith", got[0].Name)
	assert.Equal(t, "Dr C Smith", got[1].Name)
	assert.Equal(t, 2.0, got[0].Rating)
}

func TestIWGC_ReviewsStopOnEmptyPage(t *testing.T) {
	review := func(text, date string) string {
		return `<div class="review"><div class="rating"><img src="/i/icon-star-yellow-full.png"></div>` +
			`<p class="review-text">` + text + `</p><span class="review-date">` + date + `</span></div>`
	}
	f := newFake()
	f.pages["/doctors/dr-a?page=1"] = "<html>" + review("Kind and clear", "12 March 2020") + review("Late again", "1 May 2021") + "</html>"
	f.pages["/doctors/dr-a?page=2"] = "<html>" + review("Kind and clear", "12 March 2020") + "</html>"
	f.pages["/doctors/dr-a?page=3"] = "<html>" + review("Never reached", "1 May 2021") + "</html>"

	got, err := newIWGC(t, f).CollectReviews(context.Background(), "dr-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Rating)
	assert.Equal(t, 2020, got[0].CreatedAt.Year())
	assert.Equal(t, 2, f.count("/doctors/dr-a"), "a page with nothing new ends the walk")
}

/********** registry **********/

func TestNewRegistry_DisabledSourcesAreInactive(t *testing.T) {
	reg, err := sources.NewRegistry(newFake(), sources.Config{
		RateMDs:  sources.RateMDsConfig{BaseURL: "https://www.ratemds.com"},
		RealSelf: sources.RealSelfConfig{SearchURL: "https://s", APIURL: "https://a", SiteURL: "https://w", ImageBaseURL: "https://i"},
		IWGC:     sources.IWGCConfig{BaseURL: "https://www.iwantgreatcare.org"},
		Disabled: []string{" rs "},
	})
	require.NoError(t, err)

	ids := []string{}
	for _, s := range reg.Active() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"rms", "iwgc"}, ids)

	_, err = reg.Lookup("rs")
	assert.ErrorIs(t, err, domain.ErrSourceInactive)

	rms, err := reg.Lookup("rms")
	require.NoError(t, err)
	assert.Equal(t, 1, rms.Policy.NegativeMax)
}

func TestNewRegistry_DefaultThresholdsDropUnreviewedProfiles(t *testing.T) {
	f := newFake()
	f.pages["/best-doctors/?json=true&page=1&text=smith"] = `{"total_pages": 1, "results": [
		{"full_name": "Dr Zero", "specialty_name": "Dentist", "url": "/d/0", "rating": {"average": 0, "count": 0}},
		{"full_name": "Dr One", "specialty_name": "Dentist", "url": "/d/1", "rating": {"average": 4, "count": 1}}
	]}`
	f.pages["/site_search?query=smith"] = `{"contents": [
		{"id": 5, "title": "Dr. Unrated", "specialty": "Dermatologist", "uri": "/dr/unrated", "review_count": 0}
	]}`
	reg, err := sources.NewRegistry(f, sources.Config{
		RateMDs:  sources.RateMDsConfig{BaseURL: "https://www.ratemds.com"},
		RealSelf: sources.RealSelfConfig{SearchURL: "https://search.realself.com", APIURL: "https://a", SiteURL: "https://w", ImageBaseURL: "https://i"},
		IWGC:     sources.IWGCConfig{BaseURL: "https://www.iwantgreatcare.org"},
	})
	require.NoError(t, err)

	rms, err := reg.Lookup("rms")
	require.NoError(t, err)
	got, err := rms.Profiles.SearchProfiles(context.Background(), "smith")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dr One", got[0].Name)

	rs, err := reg.Lookup("rs")
	require.NoError(t, err)
	got, err = rs.Profiles.SearchProfiles(context.Background(), "smith")
	require.NoError(t, err)
	assert.Empty(t, got)
}
