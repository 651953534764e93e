package sigmf

import (
	"archive/tar"
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// encode prepares the metadata and sample bytes of a single channel recording.
func encode(meta *Meta, samples []complex128) (Meta, []byte, error) {
	m := *meta
	d, err := ParseDatatype(m.Global.Datatype)
	if err != nil {
		return m, nil, err
	}
	if m.Global.NumChannels > 1 {
		return m, nil, fmt.Errorf("sigmf: writing %d channels is not supported", m.Global.NumChannels)
	}
	if m.Global.Version == "" {
		m.Global.Version = Version
	}
	if m.Captures == nil {
		m.Captures = []Segment{{SampleStart: 0}}
	}
	if m.Annotations == nil {
		m.Annotations = []Annotation{}
	}

	raw := make([]byte, len(samples)*d.SampleSize())
	d.Encode(raw, samples)
	sum := sha512.Sum512(raw)
	m.Global.SHA512 = hex.EncodeToString(sum[:])
	return m, raw, nil
}

// Write stores samples as a metadata/data pair named base+MetaExt and
// base+DataExt, encoded with meta's datatype. core:sha512 is filled in.
func Write(base string, meta *Meta, samples []complex128) error {
	m, raw, err := encode(meta, samples)
	if err != nil {
		return err
	}
	if err := os.WriteFile(base+DataExt, raw, 0o644); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := WriteMeta(&buf, &m); err != nil {
		return err
	}
	return os.WriteFile(base+MetaExt, buf.Bytes(), 0o644)
}

// WriteArchive stores samples as a tar archive at name, which must end in
// ArchiveExt. Members live in a directory named after the archive.
func WriteArchive(name string, meta *Meta, samples []complex128) (err error) {
	if !strings.HasSuffix(name, ArchiveExt) {
		return fmt.Errorf("sigmf: archive name %q must end in %s", name, ArchiveExt)
	}
	m, raw, err := encode(meta, samples)
	if err != nil {
		return err
	}
	var metaBuf bytes.Buffer
	if err := WriteMeta(&metaBuf, &m); err != nil {
		return err
	}

	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	stem := strings.TrimSuffix(filepath.Base(name), ArchiveExt)
	now := time.Now()
	tw := tar.NewWriter(f)
	for _, member := range []struct {
		name string
		body []byte
	}{
		{stem + "/" + stem + MetaExt, metaBuf.Bytes()},
		{stem + "/" + stem + DataExt, raw},
	} {
		hdr := &tar.Header{
			Name:     member.name,
			Mode:     0o644,
			Size:     int64(len(member.body)),
			ModTime:  now,
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(member.body); err != nil {
			return err
		}
	}
	return tw.Close()
}
