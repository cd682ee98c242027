package loader

import "strings"

// Endpoint is the Google Maps JavaScript API script endpoint.
const Endpoint = "https://maps.googleapis.com/maps/api/js"

// Options are the optional script URL parameters. Values are passed through
// verbatim; the loader performs no validation, so library names must not be
// empty or contain commas.
type Options struct {
	// Libraries lists extra feature libraries to load with the base API.
	Libraries []string
	// Language sets the language used by map controls and labels.
	Language string
	// Region biases the API toward a region.
	Region string
}

// BuildURL constructs the script URL for key and opts. The key parameter
// always comes first, followed by libraries, language and region when
// present. Libraries are joined with commas. No URL escaping is applied.
func BuildURL(key string, opts Options) string {
	url := Endpoint + "?key=" + key
	if len(opts.Libraries) > 0 {
		url += "&libraries=" + strings.Join(opts.Libraries, ",")
	}
	if opts.Language != "" {
		url += "&language=" + opts.Language
	}
	if opts.Region != "" {
		url += "&region=" + opts.Region
	}
	return url
}
