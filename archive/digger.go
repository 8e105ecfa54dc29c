// Copyright 2025 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package archive discovers archived redo-log files and orders them by
// sequence for ingestion.
package archive

import (
	"os"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/pkg/logger"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// LogFile is one discovered archived redo file.
type LogFile struct {
	Path     string
	Sequence types.Seq
}

// Digger produces the ordered ingestion queue of archived redo files.
type Digger interface {
	Queue() ([]LogFile, error)
}

// PathMapping rewrites discovered paths, for mounts that differ from the
// database's recovery destination.
type PathMapping func(string) string

// OfflineDigger scans <recovery destination>/<context>/archivelog on the
// local filesystem, matching files against the archive-log name format
// (%t thread, %s sequence, %h/%r resetlogs id).
type OfflineDigger struct {
	logger logger.Logger

	archiveLogFormat        string
	recoveryFileDestination string
	context                 string
	mapping                 PathMapping

	sequencePattern *regexp.Regexp
}

func NewOfflineDigger(archiveLogFormat, recoveryFileDestination, context string, mapping PathMapping) (*OfflineDigger, error) {
	if archiveLogFormat == "" {
		return nil, oerr.New(oerr.MissingFile, "missing location of archived redo logs, archive log format is empty")
	}
	if mapping == nil {
		mapping = func(p string) string { return p }
	}

	pattern, err := formatToPattern(archiveLogFormat)
	if err != nil {
		return nil, err
	}

	return &OfflineDigger{
		logger:                  logger.GetLogger(),
		archiveLogFormat:        archiveLogFormat,
		recoveryFileDestination: recoveryFileDestination,
		context:                 context,
		mapping:                 mapping,
		sequencePattern:         pattern,
	}, nil
}

// formatToPattern compiles the log-archive-format into a regexp with a
// capture group on the %s sequence specifier.
func formatToPattern(format string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) {
			i++
			switch format[i] {
			case 's', 'S':
				sb.WriteString(`(\d+)`)
			case 't', 'T', 'a', 'd':
				sb.WriteString(`\d+`)
			case 'h', 'r', 'R':
				sb.WriteString(`[0-9a-zA-Z_]+`)
			case '%':
				sb.WriteString("%")
			default:
				return nil, oerr.New(oerr.NotValidField, "unknown archive log format specifier %%%c", format[i])
			}
			continue
		}
		sb.WriteString(regexp.QuoteMeta(string(format[i])))
	}
	sb.WriteString("$")

	pattern, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, oerr.Wrap(err, oerr.NotValidField, "can not compile archive log format %q", format)
	}
	if pattern.NumSubexp() != 1 {
		return nil, oerr.New(oerr.NotValidField, "archive log format %q must contain exactly one %%s sequence specifier", format)
	}
	return pattern, nil
}

// Queue implements Digger: walk the archivelog directory tree and return the
// matching files ordered by sequence.
func (d *OfflineDigger) Queue() ([]LogFile, error) {
	root := d.mapping(path.Join(d.recoveryFileDestination, d.context, "archivelog"))

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, oerr.New(oerr.WrongDirName, "not a directory: %s", root)
	}

	var queue []LogFile
	if err = d.scan(root, &queue); err != nil {
		return nil, err
	}

	slices.SortFunc(queue, func(a, b LogFile) int {
		return int(a.Sequence) - int(b.Sequence)
	})
	return queue, nil
}

func (d *OfflineDigger) scan(dir string, queue *[]LogFile) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return oerr.Wrap(err, oerr.MissingDir, "can not read directory: %s", dir)
	}

	for _, entry := range entries {
		full := path.Join(dir, entry.Name())
		if entry.IsDir() {
			// archived logs are laid out in per-day subdirectories
			if err = d.scan(full, queue); err != nil {
				return err
			}
			continue
		}

		match := d.sequencePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			d.logger.Debugf("skip non-archive file: %s", full)
			continue
		}
		seq, err := strconv.ParseUint(match[1], 10, 32)
		if err != nil {
			d.logger.Warnf("bad sequence in archive file name %s: %v", full, err)
			continue
		}
		*queue = append(*queue, LogFile{Path: full, Sequence: types.Seq(seq)})
	}
	return nil
}
