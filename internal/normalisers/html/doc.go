// Package html provides an HTML normaliser for exported recipe pages.
package html
