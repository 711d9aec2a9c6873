// Package github implements git.Provider on the GitHub REST API (cloud or
// enterprise) with go-github. Repositories are addressed by owner/name and
// the credential travels as a bearer Authorization header. Provider also
// implements git.GistService and git.Prober.
package github
