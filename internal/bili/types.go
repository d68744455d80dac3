package bili

// Raw payload shapes for the upstream space-feed and article-view endpoints.
// Only the fields the normalizer consumes are decoded; the upstream payloads
// carry far more.

// spaceFeedResponse is the envelope of the space-feed endpoint.
type spaceFeedResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Items []Item `json:"items"`
	} `json:"data"`
}

// Item is one raw entry of a creator's activity stream.
type Item struct {
	// Type discriminates the post shape (draw/word/av/article).
	Type string `json:"type"`
	// IDStr is the opus identifier for image and text posts.
	IDStr string `json:"id_str"`
	// Basic carries the article identifier for article posts.
	Basic Basic `json:"basic"`
	// Modules holds the author and body payloads.
	Modules Modules `json:"modules"`
}

// Basic carries shape-independent identifiers.
type Basic struct {
	// RidStr is the article identifier (the "cv" number without prefix).
	RidStr string `json:"rid_str"`
}

// Modules groups the per-item payload modules.
type Modules struct {
	Author  Author  `json:"module_author"`
	Dynamic Dynamic `json:"module_dynamic"`
}

// Author identifies the creator and the publish time.
type Author struct {
	Name    string `json:"name"`
	PubTime string `json:"pub_time"`
}

// Dynamic wraps the major body payload.
type Dynamic struct {
	Major Major `json:"major"`
}

// Major holds exactly one of the body variants.
type Major struct {
	Opus    *Opus    `json:"opus"`
	Archive *Archive `json:"archive"`
}

// Opus is the body of an image or text post.
type Opus struct {
	Title   string  `json:"title"`
	Summary Summary `json:"summary"`
	Pics    []Pic   `json:"pics"`
}

// Summary is the text body of an opus.
type Summary struct {
	Text string `json:"text"`
}

// Pic is one image reference.
type Pic struct {
	URL string `json:"url"`
}

// Archive is the body of a video post.
type Archive struct {
	Title string `json:"title"`
	Bvid  string `json:"bvid"`
	Desc  string `json:"desc"`
	Cover string `json:"cover"`
}

// articleResponse is the envelope of the article-view endpoint.
type articleResponse struct {
	Code    int     `json:"code"`
	Message string  `json:"message"`
	Data    Article `json:"data"`
}

// Article is a fetched article body. Modern articles carry an Opus
// paragraph sequence; legacy articles carry only the flat Content string.
type Article struct {
	Title       string       `json:"title"`
	PublishTime int64        `json:"publish_time"`
	Content     string       `json:"content"`
	Opus        *ArticleOpus `json:"opus"`
}

// ArticleOpus wraps the paragraph sequence of a modern article.
type ArticleOpus struct {
	Content ArticleContent `json:"content"`
}

// ArticleContent is the typed paragraph sequence.
type ArticleContent struct {
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Paragraph types used by the upstream article format.
const (
	// ParagraphText marks a text paragraph.
	ParagraphText = 1
	// ParagraphImage marks an image paragraph.
	ParagraphImage = 2
)

// Paragraph is one typed article paragraph.
type Paragraph struct {
	ParaType int            `json:"para_type"`
	Text     *ParagraphBody `json:"text"`
	Pic      *ParagraphPics `json:"pic"`
}

// ParagraphBody holds the word nodes of a text paragraph.
type ParagraphBody struct {
	Nodes []TextNode `json:"nodes"`
}

// TextNode is one word node.
type TextNode struct {
	Word Word `json:"word"`
}

// Word carries the node's text.
type Word struct {
	Words string `json:"words"`
}

// ParagraphPics holds the images of an image paragraph.
type ParagraphPics struct {
	Pics []Pic `json:"pics"`
}
