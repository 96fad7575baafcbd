package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authUserXML = `<?xml version="1.0"?>
<response>
	<request><authenticated>true</authenticated></request>
	<user id="7654321"><name>Ursula</name></user>
</response>`

const reviewListXML = `<?xml version="1.0"?>
<response>
	<request><authenticated>true</authenticated></request>
	<reviews start="1" end="2" total="2">
		<review>
			<id>9001</id>
			<book>
				<id>111</id>
				<isbn>0061054887</isbn>
				<isbn13>9780061054884</isbn13>
				<title>The Left Hand of Darkness</title>
				<num_pages>304</num_pages>
				<format>Paperback</format>
				<publisher>Ace</publisher>
				<publication_year>1969</publication_year>
				<description>Winter planet.</description>
				<image_url>http://img.example/111.jpg</image_url>
				<authors>
					<author><name>Ursula K. Le Guin</name></author>
				</authors>
			</book>
			<rating>5</rating>
			<started_at>Mon Jan 06 10:00:00 -0800 2020</started_at>
			<read_at>Fri Jan 31 22:15:00 -0800 2020</read_at>
			<date_added>Wed Jan 01 09:00:00 -0800 2020</date_added>
			<date_updated>Sat Feb 01 08:00:00 -0800 2020</date_updated>
			<shelves>
				<shelf name="read" exclusive="true"/>
				<shelf name="science-fiction" exclusive="false"/>
			</shelves>
		</review>
		<review>
			<id>9002</id>
			<book>
				<id>222</id>
				<title>Untitled Draft</title>
				<num_pages></num_pages>
				<authors><author><name>Anonymous</name></author></authors>
			</book>
			<rating>0</rating>
			<date_updated>Thu Jan 30 12:00:00 -0800 2020</date_updated>
			<shelves><shelf name="to-read" exclusive="true"/></shelves>
		</review>
	</reviews>
</response>`

func newTestClient(t *testing.T, handler http.Handler, store CredentialStore) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:         server.URL,
		ConsumerKey:     "key",
		ConsumerSecret:  "secret",
		RequestInterval: time.Millisecond,
	}, store)
	return client, server
}

func TestClient_ListReviews_ParsesPage(t *testing.T) {
	store := &fakeStore{token: "tok", secret: "sec", validated: true, userID: 7654321}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/review/list.xml", r.URL.Path)
		assert.Equal(t, "d", r.URL.Query().Get("order"))
		assert.Equal(t, "all", r.URL.Query().Get("shelf"))
		_, _ = w.Write([]byte(reviewListXML))
	}), store)

	page, err := client.ListReviews(context.Background(), 1, DefaultReviewPageSize)
	require.NoError(t, err)

	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Reviews, 2)

	first := page.Reviews[0]
	assert.Equal(t, int64(9001), first.ReviewID)
	assert.Equal(t, int64(111), first.BookID)
	assert.Equal(t, "9780061054884", first.ISBN13)
	assert.Equal(t, "The Left Hand of Darkness", first.Title)
	assert.Equal(t, []string{"Ursula K. Le Guin"}, first.Authors)
	assert.Equal(t, int64(304), first.Pages)
	assert.Equal(t, 5.0, first.Rating)
	assert.Equal(t, []string{"read", "science-fiction"}, first.Shelves)
	require.NotNil(t, first.DateUpdated)
	assert.Equal(t, 2020, first.DateUpdated.UTC().Year())

	// Empty num_pages body parses to nothing, not zero-with-error.
	second := page.Reviews[1]
	assert.Equal(t, int64(0), second.Pages)
	assert.Nil(t, second.ReadStart)
	assert.Equal(t, []string{"to-read"}, second.Shelves)
}

func TestClient_HasValidCredentials_MemoizedUntil401(t *testing.T) {
	var authUserCalls atomic.Int64
	store := &fakeStore{token: "tok", secret: "sec"}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/auth_user"):
			authUserCalls.Add(1)
			_, _ = w.Write([]byte(authUserXML))
		case strings.HasPrefix(r.URL.Path, "/review/list"):
			w.WriteHeader(http.StatusUnauthorized)
		}
	}), store)

	ctx := context.Background()

	// First check validates over the wire and caches the result.
	require.True(t, client.HasValidCredentials(ctx))
	require.True(t, client.HasValidCredentials(ctx))
	assert.Equal(t, int64(1), authUserCalls.Load())
	assert.Equal(t, StateValidated, client.State())

	id, name, err := store.CachedUser()
	require.NoError(t, err)
	assert.Equal(t, int64(7654321), id)
	assert.Equal(t, "Ursula", name)

	// A 401 on any endpoint clears the memo...
	_, err = client.ListReviews(ctx, 1, 50)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// ...so the next check goes back to the auth_user endpoint.
	require.True(t, client.HasValidCredentials(ctx))
	assert.Equal(t, int64(2), authUserCalls.Load())
}

func TestClient_HasValidCredentials_NoToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network call expected without a token")
	}), &fakeStore{})

	assert.False(t, client.HasValidCredentials(context.Background()))
}

func TestClient_ShowBookByID(t *testing.T) {
	const bookXML = `<?xml version="1.0"?>
<response>
	<book>
		<id>111</id>
		<isbn>0061054887</isbn>
		<isbn13>9780061054884</isbn13>
		<title>The Left Hand of Darkness</title>
		<num_pages>304</num_pages>
		<publisher>Ace</publisher>
		<publication_year>1969</publication_year>
		<average_rating>4.08</average_rating>
		<authors>
			<author><name>Ursula K. Le Guin</name></author>
		</authors>
	</book>
</response>`
	store := &fakeStore{token: "tok", secret: "sec", validated: true}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/book/show/111.xml", r.URL.Path)
		_, _ = w.Write([]byte(bookXML))
	}), store)

	book, err := client.ShowBookByID(context.Background(), 111)
	require.NoError(t, err)
	assert.Equal(t, int64(111), book.ID)
	assert.Equal(t, "9780061054884", book.ISBN13)
	assert.Equal(t, "The Left Hand of Darkness", book.Title)
	assert.Equal(t, []string{"Ursula K. Le Guin"}, book.Authors)
	assert.Equal(t, 1969, book.PublicationYear)
	assert.Equal(t, 4.08, book.AverageRating)
}

func TestClient_ShowBookByISBN_NotFound(t *testing.T) {
	store := &fakeStore{token: "tok", secret: "sec", validated: true}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/book/isbn/9780061054884.xml", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}), store)

	_, err := client.ShowBookByISBN(context.Background(), "9780061054884")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ISBNToID(t *testing.T) {
	store := &fakeStore{token: "tok", secret: "sec", validated: true}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/book/isbn_to_id/9780061054884", r.URL.Path)
		_, _ = w.Write([]byte("111\n"))
	}), store)

	id, err := client.ISBNToID(context.Background(), "9780061054884")
	require.NoError(t, err)
	assert.Equal(t, int64(111), id)
}

func TestClient_ISBNToID_NotFound(t *testing.T) {
	store := &fakeStore{token: "tok", secret: "sec", validated: true}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), store)

	_, err := client.ISBNToID(context.Background(), "0000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_AddBookToShelf(t *testing.T) {
	store := &fakeStore{token: "tok", secret: "sec", validated: true}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/shelf/add_to_shelf.xml", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "111", r.PostFormValue("book_id"))
		assert.Equal(t, "read", r.PostFormValue("name"))
		w.WriteHeader(http.StatusCreated)
	}), store)

	err := client.AddBookToShelf(context.Background(), 111, "read")
	require.NoError(t, err)
}

func TestClient_ListShelves(t *testing.T) {
	const shelvesXML = `<response><shelves start="1" end="3" total="3">
		<user_shelf><id>1</id><name>read</name><exclusive_flag>true</exclusive_flag><book_count>12</book_count></user_shelf>
		<user_shelf><id>2</id><name>to-read</name><exclusive_flag>true</exclusive_flag><book_count>4</book_count></user_shelf>
		<user_shelf><id>3</id><name>favorites</name><exclusive_flag>false</exclusive_flag><book_count>2</book_count></user_shelf>
	</shelves></response>`

	store := &fakeStore{token: "tok", secret: "sec", validated: true, userID: 7}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(shelvesXML))
	}), store)

	page, err := client.ListShelves(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, page.Shelves, 3)
	assert.Equal(t, "read", page.Shelves[0].Name)
	assert.True(t, page.Shelves[0].Exclusive)
	assert.False(t, page.Shelves[2].Exclusive)
	assert.Equal(t, 12, page.Shelves[0].BookCount)
}

func TestClient_CreateShelf(t *testing.T) {
	const shelfXML = `<?xml version="1.0"?>
<user_shelf>
	<id>42</id>
	<name>currently-reading</name>
	<exclusive_flag>true</exclusive_flag>
</user_shelf>`
	store := &fakeStore{token: "tok", secret: "sec", validated: true}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user_shelves.xml", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "currently-reading", r.PostFormValue("user_shelf[name]"))
		assert.Equal(t, "true", r.PostFormValue("user_shelf[exclusive_flag]"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(shelfXML))
	}), store)

	shelf, err := client.CreateShelf(context.Background(), "currently-reading", true)
	require.NoError(t, err)
	assert.Equal(t, int64(42), shelf.ID)
	assert.Equal(t, "currently-reading", shelf.Name)
	assert.True(t, shelf.Exclusive)
}

func TestClient_Search(t *testing.T) {
	const searchXML = `<response><search><results>
		<work><id>55</id><best_book><id>111</id><title>The Left Hand of Darkness</title>
		<author><name>Ursula K. Le Guin</name></author>
		<image_url>http://img.example/111.jpg</image_url></best_book></work>
	</results></search></response>`

	store := &fakeStore{token: "tok", secret: "sec", validated: true}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(searchXML))
	}), store)

	results, err := client.Search(context.Background(), "left hand")
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, int64(111), results[0].BookID)
	assert.Equal(t, "Ursula K. Le Guin", results[0].Author)
}

func TestParseRemoteTime(t *testing.T) {
	tests := []struct {
		raw  string
		ok   bool
		year int
	}{
		{"Sat Feb 01 08:00:00 -0800 2020", true, 2020},
		{"2021-07-04T10:00:00Z", true, 2021},
		{"2019-12-31", true, 2019},
		{"not a date", false, 0},
		{"", false, 0},
	}

	for _, tt := range tests {
		got, ok := parseRemoteTime(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		if tt.ok {
			assert.Equal(t, tt.year, got.UTC().Year(), tt.raw)
		}
	}
}
