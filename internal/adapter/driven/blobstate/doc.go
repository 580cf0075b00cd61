// Package blobstate stores the credential, the catalog snapshot and the tax
// lookup tables as JSON records in any driven.BlobStore. Unreadable records
// are logged and reported as absent so callers degrade to "needs setup" or
// "needs resync" instead of failing.
package blobstate
