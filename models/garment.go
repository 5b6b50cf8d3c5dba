package models

type Garment struct {
	JsonModel
	Name        string          `json:"name"`
	Description *string         `gorm:"type:text" json:"description"`
	Category    GarmentCategory `json:"category"` // top, bottom, outerwear, footwear, accessory, dress, suit
	Formality   Formality       `json:"formality"`
	Season      Season          `json:"season"`
	// primary color always set by the wardrobe UI, hex like "#1A2B3C"
	PrimaryColor   string      `json:"primary_color"`
	SecondaryColor *string     `json:"secondary_color"`
	Pattern        *string     `json:"pattern"`
	Material       *string     `json:"material"`
	Favorite       bool        `gorm:"default:false" json:"favorite"`
	Owner          UserAccount `json:"-"`
	OwnerID        uint        `json:"-"`
	// this is file **key** in storage.
	ImageURL *string `json:"image_url"`
	// draft, uploaded
	ImageStatus string `json:"image_status"`
	Archived    bool   `gorm:"default:false" json:"-"`
}
