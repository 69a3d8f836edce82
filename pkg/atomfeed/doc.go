// Package atomfeed generates static INSPIRE Atom feeds: one service feed
// (index.xml) and one dataset feed per dataset, described by a JSON or YAML
// document and decorated with download media types and sizes looked up in
// object storage.
//
// The feed tree (ServiceFeed, Dataset, Download) is parsed once per run and
// bound to an Environment holding the storage Source and the public URLs.
// Derived template fields are computed through explicit methods that take the
// owning feed as an argument; storage lookups are memoized per download for
// the lifetime of the run.
//
// Storage backends live under storage/, media type resolution under
// mediatype/, remote zip listing under remotezip/, the source bucket
// accessor under source/ and the template/model field check under
// reconcile/.
package atomfeed
