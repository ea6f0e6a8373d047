package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Preferences: предпочтения пользователя, не больше одной записи на пользователя.
type Preferences struct {
	UserID    uuid.UUID `json:"-"`
	GenreIDs  []int     `json:"genreIds"`
	Language  string    `json:"language"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultPreferences возвращает пустые предпочтения для пользователя.
func DefaultPreferences(userID uuid.UUID) *Preferences {
	return &Preferences{UserID: userID, GenreIDs: []int{}}
}

// Genre: жанр из каталога TMDB.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// knownGenres: объединённый список жанров фильмов и сериалов TMDB.
var knownGenres = []Genre{
	{12, "Adventure"},
	{14, "Fantasy"},
	{16, "Animation"},
	{18, "Drama"},
	{27, "Horror"},
	{28, "Action"},
	{35, "Comedy"},
	{36, "History"},
	{37, "Western"},
	{53, "Thriller"},
	{80, "Crime"},
	{99, "Documentary"},
	{878, "Science Fiction"},
	{9648, "Mystery"},
	{10402, "Music"},
	{10749, "Romance"},
	{10751, "Family"},
	{10752, "War"},
	{10759, "Action & Adventure"},
	{10762, "Kids"},
	{10763, "News"},
	{10764, "Reality"},
	{10765, "Sci-Fi & Fantasy"},
	{10766, "Soap"},
	{10767, "Talk"},
	{10768, "War & Politics"},
	{10770, "TV Movie"},
}

// KnownGenres возвращает копию списка известных жанров.
func KnownGenres() []Genre {
	return slices.Clone(knownGenres)
}

// IsKnownGenre сообщает, входит ли id в список известных жанров.
func IsKnownGenre(id int) bool {
	return slices.ContainsFunc(knownGenres, func(g Genre) bool { return g.ID == id })
}
