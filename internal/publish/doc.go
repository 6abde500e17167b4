// Package publish holds the tree of items slated for publishing: items
// with open property bags and tree links, tasks binding items to plugins,
// and JSON persistence for save/resume workflows.
package publish
