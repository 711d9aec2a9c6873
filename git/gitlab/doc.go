// Package gitlab implements git.Provider on the GitLab REST API (v4) with
// the gitlab-org client. The credential travels in the PRIVATE-TOKEN header.
//
// GitLab addresses repositories by numeric project id. Every repo-scoped
// operation first resolves owner/name through GET /projects/:path; when
// that lookup yields no id the operation fails with git.ErrProjectNotFound
// and the dependent request is never sent. Resolved projects are cached
// per instance until End.
//
// Requests go through the typed client-go services (Projects, Issues,
// Notes, Labels, Milestones, ProjectMembers, RepositoryFiles, Users);
// convert.go lifts their types into the git records.
package gitlab
