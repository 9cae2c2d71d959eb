// Package storage implements the on-disk artifact layout shared by every
// other component.
//
// The layout, per project slug and run id:
//
//	<root>/projects/<slug>/
//	  config.json                  operator settings
//	  latest_run.txt               plain-text latest run id
//	  runs/<run_id>/
//	    meta.json                  run metadata
//	    queue/<md5(url)>.todo|.done
//	    pages/<md5(url)>.json
//	    images/<md5(url)>.json
//	    errors/<md5(url)>.json
//	    others/<md5(url)>.json
//	    audit.json
//
// All JSON files are pretty-printed UTF-8 with slashes unescaped. This
// package contains no crawl or audit logic; it is a pure path/IO
// contract, which keeps the artifacts inspectable with nothing more
// than ls and cat.
package storage
