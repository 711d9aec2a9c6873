// Package commitmsg generates the default commit
// messages used for file operations. Messages are
// fasttemplate strings with {{op}}, {{path}}, {{name}}
// and {{device}} tags, and every generated message ends
// with a trailer naming the device that made the change.
package commitmsg
