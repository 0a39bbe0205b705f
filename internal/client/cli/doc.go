// Package cli provides the filevault command-line client.
//
// Commands map one to one onto the REST API: upload, download, list, delete
// and logs. The server address comes from --server or $FILEVAULT_SERVER.
package cli
