// Package ports defines the interfaces between the castd lifecycle core and
// its external collaborators: the streaming protocol engine, the video and
// audio renderers, and the discovery registrar. The lifecycle core depends
// only on these interfaces; concrete implementations are injected in
// cmd/castd (see internal/adapters/dev for the in-process development set).
//
// The package also holds the small value types shared between the
// configuration layer and the collaborators (orientation selectors, audio
// format codes, collaborator log levels).
package ports
