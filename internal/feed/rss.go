package feed

import "encoding/xml"

// Document is an RSS 2.0 feed document value.
type Document struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

// Channel is the feed-level identity and entry collection.
type Channel struct {
	Title         string  `xml:"title"`
	Link          string  `xml:"link"`
	Description   string  `xml:"description"`
	LastBuildDate string  `xml:"lastBuildDate"`
	Entries       []Entry `xml:"item"`
}

// Entry is one feed item.
type Entry struct {
	Title       string      `xml:"title"`
	Link        string      `xml:"link"`
	GUID        GUID        `xml:"guid"`
	Description string      `xml:"description"`
	PubDate     string      `xml:"pubDate"`
	Enclosures  []Enclosure `xml:"enclosure"`
}

// GUID is the entry identity.
type GUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// Enclosure declares one external binary attachment.
type Enclosure struct {
	URL    string `xml:"url,attr"`
	Length string `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}
