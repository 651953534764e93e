// Package viewer shows a rendered spectrogram in the browser.
//
// A Viewer serves the image, a small HTML page around it and the capture
// metadata over HTTP until the page is dismissed or its context ends.
package viewer
