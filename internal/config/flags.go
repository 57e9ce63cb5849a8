package config

import (
	"github.com/spf13/pflag"
)

const (
	flagExclude        = "exclude"
	flagHash           = "hash"
	flagNoSize         = "no-size"
	flagNoCreated      = "no-created"
	flagNoModified     = "no-modified"
	flagTimeWindow     = "time-window"
	flagWorkers        = "workers"
	flagIgnoreMissing  = "ignore-missing"
	flagSkipUnreadable = "skip-unreadable"
	flagKeepRemoved    = "keep-removed"
	flagFormat         = "format"

	flagSizeAndTime    = "size-and-time-match"
	flagAssumeModified = "unknown-assume-modified"
	flagCompareWindow  = "compare-window"
)

// BindFlags registers the snapshot building flags on fs. Defaults shown in
// help are the built-in ones; only flags the user sets override the file.
func BindFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.StringSlice(flagExclude, nil, "additional exclusion pattern (gitignore syntax, repeatable)")
	fs.String(flagHash, d.Hash, "hash algorithm: md5, sha1, sha256, sha384, sha512, xxh64 or none")
	fs.Bool(flagNoSize, false, "do not record file sizes")
	fs.Bool(flagNoCreated, false, "do not record creation times")
	fs.Bool(flagNoModified, false, "do not record modification times")
	fs.Duration(flagTimeWindow, d.TimeWindow, "timestamp tolerance when reusing hashes")
	fs.IntP(flagWorkers, "w", d.Workers, "number of hashing workers")
	fs.Bool(flagIgnoreMissing, d.IgnoreMissing, "skip roots that do not exist")
	fs.Bool(flagSkipUnreadable, d.SkipUnreadable, "skip entries that cannot be read")
	fs.Bool(flagKeepRemoved, d.KeepRemoved, "keep entries that disappeared when updating")
	fs.String(flagFormat, d.Format, "format used when writing to stdout: text, json or yaml")
}

// BindCompareFlags registers the comparison flags on fs.
func BindCompareFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.Bool(flagSizeAndTime, d.Compare.SizeAndTimeMatch, "match entries without hashes by size and modification time")
	fs.Bool(flagAssumeModified, d.Compare.UnknownAssumeModified, "treat comparisons lacking data as changes")
	fs.Duration(flagCompareWindow, d.Compare.TimeWindow, "timestamp tolerance when comparing")
}

// ApplyFlags copies every flag the user set on fs into c.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case flagExclude:
			var extra []string
			if extra, err = fs.GetStringSlice(flagExclude); err == nil {
				c.Exclude = append(c.Exclude, extra...)
			}
		case flagHash:
			c.Hash, err = fs.GetString(flagHash)
		case flagNoSize:
			c.Collect.Size, err = negated(fs, flagNoSize)
		case flagNoCreated:
			c.Collect.Created, err = negated(fs, flagNoCreated)
		case flagNoModified:
			c.Collect.Modified, err = negated(fs, flagNoModified)
		case flagTimeWindow:
			c.TimeWindow, err = fs.GetDuration(flagTimeWindow)
		case flagWorkers:
			c.Workers, err = fs.GetInt(flagWorkers)
		case flagIgnoreMissing:
			c.IgnoreMissing, err = fs.GetBool(flagIgnoreMissing)
		case flagSkipUnreadable:
			c.SkipUnreadable, err = fs.GetBool(flagSkipUnreadable)
		case flagKeepRemoved:
			c.KeepRemoved, err = fs.GetBool(flagKeepRemoved)
		case flagFormat:
			c.Format, err = fs.GetString(flagFormat)
		case flagSizeAndTime:
			c.Compare.SizeAndTimeMatch, err = fs.GetBool(flagSizeAndTime)
		case flagAssumeModified:
			c.Compare.UnknownAssumeModified, err = fs.GetBool(flagAssumeModified)
		case flagCompareWindow:
			c.Compare.TimeWindow, err = fs.GetDuration(flagCompareWindow)
		}
	})
	if err != nil {
		return err
	}
	return c.Validate()
}

func negated(fs *pflag.FlagSet, name string) (bool, error) {
	v, err := fs.GetBool(name)
	return !v, err
}
