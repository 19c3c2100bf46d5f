// Package unitfile reads and writes working files and external units in HCL.
//
// # File Format
//
// A file holds the datablocks it owns and the links it references:
//
//	datablock "object" "O1" {
//	  subtype = "MESH"
//	  keep    = false
//	  uses    = ["mesh/M1@//_meshes/M1.hcl", "material/Red"]
//	}
//
//	link "mesh" "M1" {
//	  unit = "//_meshes/M1.hcl"
//	}
//
// A "uses" entry without a unit part names another datablock of the same
// file. An entry with a unit part names a block owned by that unit; the file
// does not need a matching link block for it, but writers always emit one.
//
// # Components
//
//   - **File:** the decoded form of one file, shared by every reader
//   - **Cache:** an LRU of decoded files keyed by absolute path, validated
//     against size and modification time
//   - **Codec:** the hoststore.Persistence implementation over an in-memory
//     store; Write saves a closure of blocks into a new unit and Link imports
//     a unit back as linked handles
//   - **Load / Save:** read a working file into a fresh store and write a
//     store back
package unitfile
