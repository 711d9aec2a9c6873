// Package gitee implements git.Provider on the Gitee REST API (v5) with a
// plain net/http client and goccy/go-json. The credential travels as
// "Authorization: token <t>" and repositories are addressed by owner/name.
//
// File content is base64 on the wire in both directions. List results
// report HasMore from the total_page header, falling back to a full page.
package gitee
