// Package packaging turns a topic release (a database zip and an images zip)
// into the two flat archives the content server ingests.
//
// Source names follow database-DD-Month-YYYY.zip and DD-Month-YYYY-images.zip.
// Both are extracted into a working folder; the XML files under the validate
// folder and the image files under the Images folder are then zipped again
// with paths relative to those folders.
package packaging
