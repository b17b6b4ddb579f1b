// Package invoice renders extracted bill data into GST invoice documents
// and archives their metadata.
package invoice
