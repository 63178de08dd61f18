// Package hcl loads install configurations written in HCL. It is an
// alternative to the INSTALL_CONFIG table read by package manifest and
// produces the same config.Configuration.
//
// A configure directory holds any number of *.hcl files:
//
//	install = "/epics"
//
//	source "git" "https://github.com/epics-modules/" {
//	  module "ASYN" {
//	    version = "R4-38"
//	    path    = "$(SUPPORT)/asyn"
//	    repo    = "asyn"
//	  }
//	  module "ASYN_DOCS" {
//	    version = version.ASYN
//	    path    = "$(SUPPORT)/asyn-docs"
//	    repo    = "asyn-docs"
//	    build   = false
//	  }
//	}
//
//	build_flag "WITH_BOOST" { value = "YES" }
//
//	injector "AD_RELEASE_CONFIG" {
//	  target   = "$(AREA_DETECTOR)/configure/RELEASE_PRODS.local"
//	  contents = "..."
//	}
//
// Module expressions may reference version.<NAME> of any module declared
// before them. clone and build default to true, package to false.
package hcl
