// Package config provides configuration parsing for uiforge projects.
//
// The configuration is stored in uiforge.json at the project root. Every
// field is optional; an empty document selects the defaults below.
//
// # Configuration File Structure
//
//	{
//	  "paths": {
//	    "source": "src",
//	    "components": "src/app/components",
//	    "canvas": "src/app/pages/components-canvas",
//	    "catalog": "component-catalog.json"
//	  },
//	  "walk": {
//	    "extensions": [".ts", ".html", ".scss", ".css"],
//	    "skip": ["node_modules", "dist", ".angular"]
//	  },
//	  "scaffold": {
//	    "mode": "remote",
//	    "url": "http://localhost:4202",
//	    "timeout": "3s"
//	  },
//	  "catalog": {
//	    "id": "design-system-v1",
//	    "s3Bucket": "design-assets"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    return err
//	}
//
//	fmt.Println("Components:", cfg.ComponentsPath())
package config
