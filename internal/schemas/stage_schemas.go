package schemas

// analysisSchema constrains the JSON shape of the analysis stage
// output: title, art style, characters, locations, and scenes.
const analysisSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "art_style", "characters", "locations", "scenes"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "art_style": {"type": "string", "minLength": 1},
    "logline": {"type": "string"},
    "characters": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "description"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "appearance": {"type": "string"}
        }
      }
    },
    "locations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "description"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"}
        }
      }
    },
    "scenes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["number", "description"],
        "properties": {
          "number": {"type": "integer", "minimum": 1},
          "title": {"type": "string"},
          "location": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    }
  }
}`

// shotPlanSchema constrains the JSON shape of the shot planning stage
// output: per-scene ordered shot lists with globally unique shot
// numbers.
const shotPlanSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["scenes"],
  "properties": {
    "scenes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["number", "shots"],
        "properties": {
          "number": {"type": "integer", "minimum": 1},
          "shots": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["number", "description"],
              "properties": {
                "number": {"type": "integer", "minimum": 1},
                "description": {"type": "string", "minLength": 1},
                "characters": {"type": "array", "items": {"type": "string"}},
                "location": {"type": "string"},
                "camera_movement": {"type": "string"},
                "duration_seconds": {"type": "number", "minimum": 0},
                "start_frame": {"type": "string"},
                "end_frame": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`
