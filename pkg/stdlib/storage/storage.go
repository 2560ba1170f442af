// Package storage provides the built-ins that list, load, save and delete programs.
//
// Every access to the file system is a suspension point, so a slow or remote drive never
// blocks the host and a break can interrupt it. Program images are opaque bytes: whatever
// SAVE writes, LOAD reads back unchanged, compressed transparently when the name ends in
// ".gz".
package storage

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// Category is the help category of every built-in in this package.
const Category = "Stored program"

// Descriptors returns the storage built-ins.
func Descriptors() []*callable.Descriptor {
	return []*callable.Descriptor{
		callable.NewCommand(callable.Metadata{
			Name:        "DIR",
			Category:    Category,
			Description: "Lists the contents of the current drive.",
		}, callable.CommandFunc(dir)),
		callable.NewCommand(callable.Metadata{
			Name:     "KILL",
			Category: Category,
			Description: "Deletes a stored program.\n" +
				"The " + DefaultExt + " extension is added when the name has none.",
			Params: []callable.Param{{Name: "filename", Type: value.Text}},
		}, callable.CommandFunc(kill)),
		callable.NewCommand(callable.Metadata{
			Name:     "LOAD",
			Category: Category,
			Description: "Loads a stored program into memory, replacing the current one.\n" +
				"Compressed programs are detected and decompressed automatically.",
			Params: []callable.Param{{Name: "filename", Type: value.Text}},
		}, callable.CommandFunc(load)),
		callable.NewCommand(callable.Metadata{
			Name:     "SAVE",
			Category: Category,
			Description: "Saves the program in memory.\n" +
				"Without a name, the program is saved under the name it was last loaded or " +
				"saved with. Names ending in " + CompressedExt + " are stored compressed.",
			Params: []callable.Param{{Name: "filename", Type: value.Text, Optional: true}},
		}, callable.CommandFunc(save)),
	}
}

func dir(inv *callable.Invocation) error {
	fs, err := inv.Files()
	if err != nil {
		return err
	}
	con, err := inv.Console()
	if err != nil {
		return err
	}
	files, err := callable.Await(inv, func(ctx context.Context) ([]capability.FileInfo, error) {
		return fs.List(ctx)
	})
	if err != nil {
		return err
	}

	lines := []string{"", "    Modified                Size    Name"}
	var total int64
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("    %-16s  %10d    %s", f.ModTime.Format("2006-01-02 15:04"), f.Size, f.Name))
		total += f.Size
	}
	lines = append(lines, "", fmt.Sprintf("    %d file(s), %d bytes", len(files), total), "")
	for _, line := range lines {
		if err := con.Print(line); err != nil {
			return callable.NewIOError(inv.Name, err)
		}
	}
	return nil
}

func filename(inv *callable.Invocation, i int) (string, error) {
	name := inv.Text(i)
	if name == "" {
		return "", inv.ValueErrorf(i, "file name cannot be empty")
	}
	return NormalizeName(name), nil
}

func kill(inv *callable.Invocation) error {
	name, err := filename(inv, 0)
	if err != nil {
		return err
	}
	fs, err := inv.Files()
	if err != nil {
		return err
	}
	return callable.Do(inv, func(ctx context.Context) error {
		return fs.Delete(ctx, name)
	})
}

func load(inv *callable.Invocation) error {
	name, err := filename(inv, 0)
	if err != nil {
		return err
	}
	fs, err := inv.Files()
	if err != nil {
		return err
	}
	prog, err := inv.Program()
	if err != nil {
		return err
	}
	data, err := callable.Await(inv, func(ctx context.Context) ([]byte, error) {
		return fs.Get(ctx, name)
	})
	if err != nil {
		return err
	}
	text, err := DecodeImage(name, data)
	if err != nil {
		return callable.NewIOError(inv.Name, err)
	}
	prog.SetText(text)
	prog.SetName(name)
	inv.Logger().Debug("loaded program", "name", name, "bytes", len(data))
	return nil
}

func save(inv *callable.Invocation) error {
	prog, err := inv.Program()
	if err != nil {
		return err
	}
	var name string
	if inv.Has(0) {
		if name, err = filename(inv, 0); err != nil {
			return err
		}
	} else {
		name = prog.Name()
		if name == "" {
			return &callable.Error{
				Kind:     callable.ArgumentError,
				Reason:   callable.ReasonValue,
				Callable: inv.Name,
				Msg:      "unnamed program; please provide a filename",
			}
		}
	}
	fs, err := inv.Files()
	if err != nil {
		return err
	}
	data, err := EncodeImage(name, prog.Text())
	if err != nil {
		return callable.NewInternalError(inv.Name, "%v", err)
	}
	if err := callable.Do(inv, func(ctx context.Context) error {
		return fs.Put(ctx, name, data)
	}); err != nil {
		return err
	}
	prog.SetName(name)
	inv.Logger().Debug("saved program", "name", name, "bytes", len(data))
	return nil
}
