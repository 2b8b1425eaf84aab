package mcpadapter

// Param structs for the RPC tools (tools with the same input share one):
// json for wire encoding, jsonschema for the tool's advertised input
// schema. Tool results are the use-case return values, encoded by
// textResult.

type webContentExtractParams struct {
	URL string `json:"url" jsonschema:"URL to fetch and convert to markdown"`
}

type domainDeepCrawlParams struct {
	URL      string   `json:"url" jsonschema:"Starting URL for the crawl"`
	MaxDepth int      `json:"max_depth,omitempty" jsonschema:"Maximum link depth to follow (default 2)"`
	MaxPages int      `json:"max_pages,omitempty" jsonschema:"Maximum number of pages to fetch (default 20)"`
	SameHost bool     `json:"same_host,omitempty" jsonschema:"Restrict crawl to the starting URL's host"`
	Exclude  []string `json:"exclude,omitempty" jsonschema:"URL substrings to exclude from the crawl"`
}

type domainLinkPreviewParams struct {
	URL string `json:"url" jsonschema:"URL whose outbound links should be listed"`
}

type crawlSinglePageToCollectionParams struct {
	CollectionID string `json:"collection_id" jsonschema:"Target collection id"`
	URL          string `json:"url" jsonschema:"URL to fetch"`
	Folder       string `json:"folder,omitempty" jsonschema:"Destination folder inside the collection"`
	Name         string `json:"name,omitempty" jsonschema:"Destination filename; derived from the URL when omitted"`
}

type createCollectionParams struct {
	Name        string `json:"name" jsonschema:"Collection name"`
	Description string `json:"description,omitempty" jsonschema:"Human-readable description"`
}

type listFileCollectionsParams struct{}

type collectionIDParams struct {
	CollectionID string `json:"collection_id" jsonschema:"Collection id"`
}

type fileKeyParams struct {
	CollectionID string `json:"collection_id" jsonschema:"Collection id"`
	Folder       string `json:"folder,omitempty" jsonschema:"Folder inside the collection"`
	Name         string `json:"name" jsonschema:"Filename"`
}

type saveToCollectionParams struct {
	CollectionID string `json:"collection_id" jsonschema:"Collection id"`
	Folder       string `json:"folder,omitempty" jsonschema:"Folder inside the collection"`
	Name         string `json:"name" jsonschema:"Filename"`
	Content      string `json:"content" jsonschema:"Full file content"`
	SourceURL    string `json:"source_url,omitempty" jsonschema:"Originating URL, if the content was crawled"`
}

type updateFileParams struct {
	CollectionID string  `json:"collection_id" jsonschema:"Collection id"`
	Folder       string  `json:"folder,omitempty" jsonschema:"Folder inside the collection"`
	Name         string  `json:"name" jsonschema:"Filename"`
	Content      *string `json:"content,omitempty" jsonschema:"New full file content, if changed"`
	SourceURL    *string `json:"source_url,omitempty" jsonschema:"New source URL, if changed"`
}

type listFilesInCollectionParams struct {
	CollectionID string `json:"collection_id" jsonschema:"Collection id"`
}

type searchCollectionVectorsParams struct {
	Query               string            `json:"query" jsonschema:"Search query text"`
	Collection          string            `json:"collection" jsonschema:"Collection to search"`
	Limit               int               `json:"limit,omitempty" jsonschema:"Maximum number of results"`
	SimilarityThreshold *float64          `json:"similarity_threshold,omitempty" jsonschema:"Minimum similarity score to keep a result"`
	Filter              map[string]string `json:"filter,omitempty" jsonschema:"Metadata equality filters"`
	ExpandContext       bool              `json:"expand_context,omitempty" jsonschema:"Include neighboring/overlap chunks in each result"`
}

type ragQueryParams struct {
	Query               string            `json:"query" jsonschema:"Question to answer"`
	Collection          string            `json:"collection" jsonschema:"Collection to search"`
	Limit               int               `json:"limit,omitempty" jsonschema:"Maximum number of supporting chunks"`
	SimilarityThreshold *float64          `json:"similarity_threshold,omitempty" jsonschema:"Minimum similarity score to keep a chunk"`
	Filter              map[string]string `json:"filter,omitempty" jsonschema:"Metadata equality filters"`
}
