// Package extract moves one datablock out of the working store into its own
// external unit and rewires the store onto the linked replacement.
//
// Extraction writes the unit, links it back, picks the imported handle that
// replaces the original, and remaps every reference. Blocks that are already
// owned by a unit are skipped, which makes repeated calls safe.
package extract
