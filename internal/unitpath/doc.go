// Package unitpath derives and resolves the paths of external units.
//
// # Why Unit Paths Exist
//
// A unit path is the address written into link references, e.g.
// "//_meshes/M1.hcl". It is independent of where the project lives on disk:
// the "//" prefix stands for the project base directory, which is the
// directory of the working file being decomposed. The Resolver turns unit
// paths into absolute filesystem paths for the codec and the subprocess
// runner, so the same working file can be moved together with its units.
//
// Unit paths always use forward slashes regardless of the host platform.
package unitpath
