// Package sqfs reads just enough of a squashfs v4.0 image to report its
// installed size (sum of regular file content) and inode count, without
// unpacking the image.
package sqfs
