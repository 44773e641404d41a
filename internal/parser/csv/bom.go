package csv

import "strings"

const utf8BOM = "\ufeff"

// StripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
// Spreadsheet exports of the source files frequently carry one.
func StripHeaderBOM(headers []string) []string {
	if len(headers) == 0 {
		return headers
	}
	headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	return headers
}
