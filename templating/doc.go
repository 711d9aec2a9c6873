// Package templating renders the HTML pages served by the captive portals.
// It uses valyala/fasttemplate with configurable delimiters (default "{{"
// and "}}") over page templates embedded in the binary.
//
// A page is expanded in two passes. The page body is expanded against the
// variables first and then imported into the shared layout as
// "imports.content". Variable values are HTML-escaped unless their key
// starts with "raw.".
package templating
