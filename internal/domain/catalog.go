package domain

import "github.com/shopspring/decimal"

type Artist struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Genre    string `json:"genre,omitempty"`
}

type Album struct {
	ID          ID              `json:"id"`
	Title       string          `json:"title"`
	ArtistID    ID              `json:"artistId"`
	Genre       string          `json:"genre,omitempty"`
	CoverURL    string          `json:"coverUrl,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ReleaseDate string          `json:"releaseDate,omitempty"`
}

type Track struct {
	ID       ID              `json:"id"`
	Title    string          `json:"title"`
	AlbumID  ID              `json:"albumId"`
	ArtistID ID              `json:"artistId,omitempty"`
	Genre    string          `json:"genre,omitempty"`
	Duration int             `json:"duration,omitempty"`
	AudioURL string          `json:"audioUrl,omitempty"`
	Price    decimal.Decimal `json:"price"`
}

// AsProduct turns an album into a cart product descriptor.
func (a Album) AsProduct() Product {
	return Product{ID: a.ID, Title: a.Title, UnitPrice: a.Price, ImageURL: a.CoverURL}
}
